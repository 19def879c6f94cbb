package contentstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
)

func docNamed(name string) sitecontent.SiteContent {
	return sitecontent.SiteContent{
		Meta:    sitecontent.SiteMeta{Name: name},
		About:   []string{"about " + name},
		Skills:  []string{"Go"},
		Socials: []sitecontent.SocialLink{{Name: "GitHub", URL: "https://github.com/x", Icon: sitecontent.IconGitHub}},
	}
}

func encoded(t *testing.T, d sitecontent.SiteContent) []byte {
	t.Helper()
	b, err := sitecontent.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b
}

// fakeFS is the real filesystem with switchable read-only behaviour, since
// tests may run as root where permission bits are not enforced.
type fakeFS struct {
	osFS
	readOnly bool
	// lockedMode fails the writability check while writes still succeed,
	// like a 0444 file in a writable directory
	lockedMode bool
	writeErr   error
	writes     int
}

func (f *fakeFS) Writable(name string) bool {
	if f.readOnly || f.lockedMode {
		return false
	}
	return f.osFS.Writable(name)
}

func (f *fakeFS) WriteFileAtomic(name string, data []byte) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.readOnly {
		return &fs.PathError{Op: "open", Path: name, Err: syscall.EROFS}
	}
	return f.osFS.WriteFileAtomic(name, data)
}

// fakeS3 stores objects in memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
	lastPut *s3.PutObjectInput
	puts    int
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = b
	f.lastPut = in
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

// fakeGitHub serves the contents API for one file with sha compare-and-swap.
type fakeGitHub struct {
	mu      sync.Mutex
	content []byte
	sha     string
	seq     int
	gets    int
	puts    int
	failGet bool
	lastMsg string
}

const ghPath = "/repos/owner/site/contents/content/site.json"

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path != ghPath || r.Header.Get("Authorization") != "Bearer test-token" {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		f.gets++
		if f.failGet || r.URL.Query().Get("ref") != "main" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"upstream broke"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"encoding": "base64",
			"path":     "content/site.json",
			"sha":      f.sha,
			"content":  base64.StdEncoding.EncodeToString(f.content),
		})

	case http.MethodPut:
		f.puts++
		var body struct {
			Message string `json:"message"`
			Content []byte `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Branch != "main" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"bad request"}`))
			return
		}
		if body.SHA != f.sha {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprintf(w, `{"message":"content/site.json does not match %s"}`, body.SHA)
			return
		}
		f.seq++
		f.content = body.Content
		f.sha = fmt.Sprintf("sha-%d", f.seq)
		f.lastMsg = body.Message
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]any{"sha": f.sha, "path": "content/site.json"},
			"commit":  map[string]any{"sha": "commit-" + f.sha},
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeGitHub) current() ([]byte, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, f.sha
}

// locked runs fn with the server state held, for reads and writes from the test goroutine.
func (f *fakeGitHub) locked(fn func(*fakeGitHub)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type storeFixture struct {
	store *Store
	path  string
	fs    *fakeFS
	s3    *fakeS3
	gh    *fakeGitHub
}

type fixtureOpt func(*Options, *storeFixture)

func withS3() fixtureOpt {
	return func(o *Options, f *storeFixture) {
		f.s3 = newFakeS3()
		o.ObjectStore = ObjectStoreConfig{Bucket: "bucket", Key: "content/site.json"}
		o.ObjectAPI = f.s3
	}
}

func withGitHub(t *testing.T, initial []byte) fixtureOpt {
	return func(o *Options, f *storeFixture) {
		f.gh = &fakeGitHub{content: initial, sha: "sha-0"}
		srv := httptest.NewServer(f.gh)
		t.Cleanup(srv.Close)
		o.GitHub = GitHubConfig{Token: "test-token", Repo: "owner/site", Branch: "main", Path: "content/site.json", APIURL: srv.URL}
		o.HTTPClient = srv.Client()
	}
}

// newFixture writes initial (when non-nil) to a temp content file.
func newFixture(t *testing.T, initial []byte, opts ...fixtureOpt) *storeFixture {
	t.Helper()
	dir := t.TempDir()
	f := &storeFixture{path: filepath.Join(dir, "site.json"), fs: &fakeFS{}}
	if initial != nil {
		if err := os.WriteFile(f.path, initial, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	o := Options{FilePath: f.path}
	for _, fn := range opts {
		fn(&o, f)
	}
	s, err := New(o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.file.fs = f.fs
	f.store = s
	return f
}

func (f *storeFixture) fileBytes(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatalf("read content file: %v", err)
	}
	return b
}
