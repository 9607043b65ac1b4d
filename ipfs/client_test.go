package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPinBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v0/add") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("wrap-with-directory") != "true" {
			t.Error("bundle add must wrap with a directory")
		}
		if err := r.ParseMultipartForm(4 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		files := r.MultipartForm.File["file"]
		var names []string
		for _, f := range files {
			names = append(names, f.Filename)
		}
		if len(names) != 3 || names[0] != "solution.py" || names[1] != "notes.md" || names[2] != "manifest.json" {
			t.Errorf("uploaded parts = %v", names)
		}

		mf, err := files[2].Open()
		if err != nil {
			t.Fatal(err)
		}
		defer mf.Close()
		var manifest bundleManifest
		if err := json.NewDecoder(mf).Decode(&manifest); err != nil {
			t.Fatalf("decode manifest: %v", err)
		}
		if manifest.BundleID == "" || len(manifest.Files) != 2 {
			t.Errorf("manifest = %+v", manifest)
		}
		if manifest.Metadata["jobId"] != "42" {
			t.Errorf("metadata = %v", manifest.Metadata)
		}

		// One JSON line per entry, wrapping directory last.
		for i, name := range names {
			fmt.Fprintf(w, `{"Name":%q,"Hash":"QmFile%d"}`+"\n", name, i)
		}
		fmt.Fprintln(w, `{"Name":"","Hash":"QmWrapDir"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	cid, err := c.PinBundle(context.Background(), []BundleFile{
		{Name: "solution.py", Bytes: []byte("print('hi')\n"), Description: "the fix"},
		{Name: "notes.md", Bytes: []byte("# notes\n")},
	}, map[string]string{"jobId": "42"})
	if err != nil {
		t.Fatalf("pin bundle: %v", err)
	}
	if cid != "QmWrapDir" {
		t.Errorf("cid = %q, want the wrapping directory hash", cid)
	}
}

func TestPinBundleEmpty(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	if _, err := c.PinBundle(context.Background(), nil, nil); err == nil {
		t.Fatal("empty bundle must fail before any request")
	}
}

func TestPinJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"Name":"document.json","Hash":"QmDoc"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	cid, err := c.PinJSON(context.Background(), map[string]string{"hello": "world"})
	if err != nil {
		t.Fatalf("pin json: %v", err)
	}
	if cid != "QmDoc" {
		t.Errorf("cid = %q", cid)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v0/cat") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("arg") == "QmMissing" {
			http.Error(w, "merkledag: not found", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"rubric":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	data, err := c.Fetch(context.Background(), "QmEval")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != `{"rubric":[]}` {
		t.Errorf("data = %s", data)
	}

	if _, err := c.Fetch(context.Background(), "QmMissing"); err == nil {
		t.Error("missing cid must fail")
	}
	if _, err := c.Fetch(context.Background(), ""); err == nil {
		t.Error("empty cid must fail")
	}
}
