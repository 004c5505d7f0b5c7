package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"
)

func TestParseDestination(t *testing.T) {
	tests := []struct {
		raw     string
		want    Destination
		wantErr bool
	}{
		{raw: "", want: Destination{Kind: KindLocal, Dir: "/default"}},
		{raw: "out/results", want: Destination{Kind: KindLocal, Dir: "out/results"}},
		{raw: "s3://bucket", want: Destination{Kind: KindS3, Bucket: "bucket"}},
		{raw: "s3://bucket/runs/2024/", want: Destination{Kind: KindS3, Bucket: "bucket", Prefix: "runs/2024"}},
		{raw: "s3://bucket/x?region=eu-central-1", want: Destination{Kind: KindS3, Bucket: "bucket", Prefix: "x", Region: "eu-central-1"}},
		{raw: "azblob://acct/results", want: Destination{Kind: KindAzure, Account: "acct", Container: "results"}},
		{raw: "azblob://acct/results/a/b", want: Destination{Kind: KindAzure, Account: "acct", Container: "results", Prefix: "a/b"}},
		{raw: "azblob://acct", wantErr: true},
		{raw: "s3:///key", wantErr: true},
		{raw: "ftp://host/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDestination(tt.raw, "/default")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDestination) {
					t.Errorf("ParseDestination() error = %v, want ErrInvalidDestination", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDestination() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("destination mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocalSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	local := NewLocal(dir, false, nil)
	ctx := context.Background()

	first, err := local.Save(ctx, "nb.ipynb", strings.NewReader("one"), 3)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first != filepath.Join(dir, "nb.ipynb") {
		t.Errorf("first location = %q", first)
	}

	second, err := local.Save(ctx, "../nb.ipynb", strings.NewReader("two"), -1)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if second != filepath.Join(dir, "nb (1).ipynb") {
		t.Errorf("second location = %q", second)
	}

	for path, want := range map[string]string{first: "one", second: "two"} {
		data, err := os.ReadFile(path)
		if err != nil || string(data) != want {
			t.Errorf("%s = %q, %v; want %q", path, data, err, want)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("directory has %d entries, want 2 (no temp files left)", len(entries))
	}
}

func TestLocalSaveOverwrite(t *testing.T) {
	dir := t.TempDir()
	local := NewLocal(dir, true, nil)
	for _, content := range []string{"old", "new"} {
		if _, err := local.Save(context.Background(), "nb.ipynb", strings.NewReader(content), 0); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	data, _ := os.ReadFile(filepath.Join(dir, "nb.ipynb"))
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestLocalSaveShortStream(t *testing.T) {
	dir := t.TempDir()
	local := NewLocal(dir, false, nil)
	if _, err := local.Save(context.Background(), "nb.ipynb", strings.NewReader("abc"), 10); err == nil {
		t.Fatal("Save() should fail for a truncated stream")
	}
	if _, err := os.Stat(filepath.Join(dir, "nb.ipynb")); !os.IsNotExist(err) {
		t.Errorf("partial file was left behind: %v", err)
	}
}

func TestLocalSaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(t.TempDir(), false, nil).Save(ctx, "nb.ipynb", strings.NewReader("x"), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
}

type fakeS3 struct {
	bucket, key string
	body        string
	length      int64
	err         error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.bucket, f.key, f.body, f.length = aws.ToString(in.Bucket), aws.ToString(in.Key), string(data), aws.ToInt64(in.ContentLength)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Save(t *testing.T) {
	fake := &fakeS3{}
	saver := newS3(fake, Destination{Kind: KindS3, Bucket: "b", Prefix: "runs"}, nil)

	location, err := saver.Save(context.Background(), "nb.ipynb", strings.NewReader("data"), 4)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if location != "s3://b/runs/nb.ipynb" {
		t.Errorf("location = %q", location)
	}
	if fake.bucket != "b" || fake.key != "runs/nb.ipynb" || fake.body != "data" || fake.length != 4 {
		t.Errorf("PutObject got %+v", fake)
	}

	fake.err = errors.New("access denied")
	if _, err := saver.Save(context.Background(), "nb.ipynb", strings.NewReader("data"), 4); err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("Save() error = %v", err)
	}
}

type fakeBlob struct {
	container, blob, body string
}

func (f *fakeBlob) UploadStream(ctx context.Context, container, blob string, body io.Reader, _ *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error) {
	data, _ := io.ReadAll(body)
	f.container, f.blob, f.body = container, blob, string(data)
	return azblob.UploadStreamResponse{}, nil
}

func TestAzureSave(t *testing.T) {
	fake := &fakeBlob{}
	saver := newAzure(fake, Destination{Kind: KindAzure, Account: "acct", Container: "c"}, nil)

	location, err := saver.Save(context.Background(), "nb.ipynb", strings.NewReader("data"), 4)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if location != "azblob://acct/c/nb.ipynb" {
		t.Errorf("location = %q", location)
	}
	if fake.container != "c" || fake.blob != "nb.ipynb" || fake.body != "data" {
		t.Errorf("UploadStream got %+v", fake)
	}
}

func TestNewAzureRequiresCredentials(t *testing.T) {
	t.Setenv(EnvAzureKey, "")
	t.Setenv(EnvAzureSAS, "")
	if _, err := NewAzure(Destination{Kind: KindAzure, Account: "acct", Container: "c"}, nil, nil); !errors.Is(err, ErrNoAzureCredentials) {
		t.Errorf("NewAzure() error = %v, want ErrNoAzureCredentials", err)
	}

	t.Setenv(EnvAzureSAS, "?sv=2024&sig=abc")
	if _, err := NewAzure(Destination{Kind: KindAzure, Account: "acct", Container: "c"}, nil, nil); err != nil {
		t.Errorf("NewAzure() with SAS error = %v", err)
	}
}

func TestOpenLocal(t *testing.T) {
	dir := t.TempDir()
	saver, err := Open(context.Background(), Destination{Kind: KindLocal, Dir: dir}, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if local, ok := saver.(*Local); !ok || local.Dir() != dir {
		t.Errorf("Open() = %#v", saver)
	}
}
