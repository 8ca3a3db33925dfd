package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tidyxbrl/pkg/common/errors"
	"tidyxbrl/pkg/core/xbrl"
)

const sampleInstance = `<?xml version="1.0"?>
<xbrl>
  <context id="C1"><entity><identifier>0000320193</identifier></entity><period><instant>2020-12-26</instant></period></context>
  <us-gaap:Assets contextRef="C1" unitRef="usd">100</us-gaap:Assets>
</xbrl>`

func testClient(opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithRateLimit(0)}, opts...)
	return NewClient(opts...)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://www.sec.gov/Archives/edgar/data/320193/a.xml"))
	assert.True(t, IsURL("http://localhost:8080/x"))
	assert.False(t, IsURL("testdata/a.xml"))
	assert.False(t, IsURL("/tmp/a.xml"))
	assert.False(t, IsURL("ftp://host/a.xml"))
	assert.False(t, IsURL("http:///nohost"))
}

func TestClient_FetchHTTP(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sampleInstance))
	}))
	defer srv.Close()

	client := testClient(WithUserAgent("Test Co test@example.com"))
	doc, err := client.Fetch(context.Background(), srv.URL+"/filing.xml")
	require.NoError(t, err)

	assert.Equal(t, SourceHTTP, doc.Source)
	assert.Equal(t, "application/xml", doc.ContentType)
	assert.Equal(t, sampleInstance, string(doc.Body))
	assert.Equal(t, "Test Co test@example.com", gotUA)
	assert.Contains(t, gotAccept, "application/xml")
}

func TestClient_DefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(sampleInstance))
	}))
	defer srv.Close()

	_, err := testClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestClient_FetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleInstance), 0644))

	doc, err := testClient().Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, doc.Source)
	assert.Equal(t, path, doc.Location)
}

func TestClient_FetchErrors(t *testing.T) {
	_, err := testClient().Fetch(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = testClient().Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.xml"))
	assert.True(t, errors.Is(err, apperrors.ErrFetch))
}

func TestClient_FileRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "instance.xml"), []byte(sampleInstance), 0644))
	outside := filepath.Join(t.TempDir(), "private.xml")
	require.NoError(t, os.WriteFile(outside, []byte(sampleInstance), 0600))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.xml")))

	client := testClient(WithFileRoot(root))

	for _, path := range []string{"instance.xml", filepath.Join(root, "instance.xml")} {
		doc, err := client.Fetch(context.Background(), path)
		require.NoError(t, err, path)
		assert.Equal(t, SourceFile, doc.Source)
		assert.Equal(t, path, doc.Location)
	}

	for _, path := range []string{"/etc/passwd", outside, "../private.xml", "sub/../../private.xml"} {
		_, err := client.Fetch(context.Background(), path)
		require.Error(t, err, path)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "%s: %v", path, err)
	}

	_, err := client.Fetch(context.Background(), "link.xml")
	require.Error(t, err, "symlink leaving the root")
	assert.True(t, errors.Is(err, apperrors.ErrFetch))
}

func TestClient_FileRootEmptyAllowsURLsOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleInstance))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "instance.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleInstance), 0644))

	client := testClient(WithFileRoot(""))

	_, err := client.Fetch(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	doc, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, SourceHTTP, doc.Source)
}

func TestClient_NotFoundFallsBackToLocalFile(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	target := srv.URL + "/filing.xml"

	// Nothing on disk either.
	_, err := testClient().Fetch(context.Background(), target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrFetch))
	assert.Contains(t, err.Error(), "status 404")

	// The URL string read as a relative path: "http:/127.0.0.1:port/filing.xml".
	dir := t.TempDir()
	t.Chdir(dir)
	local := filepath.Join(dir, filepath.Clean(target))
	require.NoError(t, os.MkdirAll(filepath.Dir(local), 0755))
	require.NoError(t, os.WriteFile(local, []byte(sampleInstance), 0644))

	doc, err := testClient().Fetch(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, doc.Source)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := testClient(WithTimeout(50 * time.Millisecond))
	start := time.Now()
	_, err := client.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTimeout), "got %v", err)
	assert.True(t, errors.Is(err, apperrors.ErrFetch))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLoader_LoadInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleInstance), 0644))

	root, err := NewLoader(testClient()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "xbrl", root.Name)

	table, err := xbrl.Flatten(root)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "100", table.Rows[0]["datavalue"])
}

func TestLoader_LoadInlineFixture(t *testing.T) {
	root, err := NewLoader(testClient()).Load(context.Background(), "../xbrl/testdata/inline.htm")
	require.NoError(t, err)
	assert.Equal(t, "xbrl", root.Name, "inline pages come back in instance form")
}

func TestParseDocument_HTMLFallback(t *testing.T) {
	page := `<html><body><p>1 < 2</p>
<ix:header><ix:resources><xbrli:context id="c"><xbrli:entity><xbrli:identifier>1</xbrli:identifier></xbrli:entity></xbrli:context></ix:resources></ix:header>
<ix:nonNumeric name="dei:DocumentType" contextRef="c">10-K</ix:nonNumeric>
</body></html>`

	root, err := ParseDocument(&Document{Location: "filing", ContentType: "text/html; charset=utf-8", Body: []byte(page)})
	require.NoError(t, err)
	assert.Equal(t, "xbrl", root.Name)

	table, err := xbrl.Flatten(root)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "DocumentType", table.Rows[0]["datacode"])
}

func TestParseDocument_NotXML(t *testing.T) {
	_, err := ParseDocument(&Document{Location: "notes.txt", Body: []byte("just some words")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrParse))
	assert.True(t, strings.HasPrefix(err.Error(), "parse notes.txt"))
}
