package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
)

var t0 = time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

func voters() []models.Voter {
	return []models.Voter{
		{
			ID: "b", FullName: `Lamin "LJ" Ceesay`, Email: "lamin@example.gm", Organization: "GPA, Banjul",
			DateOfBirth: "1988-01-20", Gender: models.GenderMale, Region: "Banjul", Constituency: "Banjul North",
			IDType: models.IDPassportNumber, IDNumber: "778899", CreatedAt: t0.Add(time.Hour),
		},
		{
			ID: "a", FullName: "Awa Jallow", Email: "awa@example.gm", Organization: "Youth Council",
			DateOfBirth: "1995-07-01", Gender: models.GenderFemale, Region: "Kanifing", Constituency: "Bakau",
			IDType: models.IDBirthCertificate, IDNumber: "123", CreatedAt: t0,
		},
	}
}

func TestWriteCSV_HeaderOrderAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, voters()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	wantHeader := "No.,Full Name,Email,Organization,Date Of Birth,Gender,Region,Constituency,ID Type,ID Number,Registration Date"
	if lines[0] != wantHeader {
		t.Errorf("unexpected header %s", lines[0])
	}
	wantFirst := `"1","Awa Jallow","awa@example.gm","Youth Council","1995-07-01","female","Kanifing","Bakau","Birth Certificate","123","2026-04-02 08:30:00"`
	if lines[1] != wantFirst {
		t.Errorf("unexpected first row\n got %s\nwant %s", lines[1], wantFirst)
	}

	// the output is valid CSV and embedded quotes round-trip
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if records[2][1] != `Lamin "LJ" Ceesay` || records[2][3] != "GPA, Banjul" {
		t.Errorf("unexpected parsed row %v", records[2])
	}
}

func TestWriteCSV_DoesNotReorderInput(t *testing.T) {
	in := voters()
	var buf bytes.Buffer
	WriteCSV(&buf, in)
	if in[0].ID != "b" {
		t.Error("input slice was reordered")
	}
}

func TestWriter_FlushesPerChunk(t *testing.T) {
	many := make([]models.Voter, 7)
	for i := range many {
		many[i] = models.Voter{ID: string(rune('a' + i)), CreatedAt: t0.Add(time.Duration(i) * time.Minute)}
	}

	var chunks []int
	w := NewWriter(io.Discard, 3)
	w.OnChunk = func(written int) { chunks = append(chunks, written) }
	if err := w.Write(many); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	want := []int{3, 6, 7}
	if len(chunks) != len(want) {
		t.Fatalf("expected chunks %v, got %v", want, chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("expected chunks %v, got %v", want, chunks)
		}
	}
}

func TestWriteCSV_EmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	WriteCSV(&buf, nil)
	if buf.String() != strings.Join(Header, ",")+"\r\n" {
		t.Errorf("expected unquoted header only, got %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSV_PropagatesWriteError(t *testing.T) {
	if err := WriteCSV(failingWriter{}, voters()); err == nil {
		t.Error("expected write error")
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(t0); got != "voters_export_2026-04-02.csv" {
		t.Errorf("unexpected filename %s", got)
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	raw, _ := io.ReadAll(in.Body)
	f.body = string(raw)
	return &s3.PutObjectOutput{}, f.err
}

func TestArchiver_Archive(t *testing.T) {
	fake := &fakePutter{}
	a := NewArchiver(fake, ArchiveConfig{Bucket: "exports", Prefix: "voterreg"}, logger.NewDiscard())

	key, err := a.Archive(context.Background(), voters(), t0)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if key != "voterreg/voters_export_2026-04-02.csv" {
		t.Errorf("unexpected key %s", key)
	}
	if aws.ToString(fake.input.Bucket) != "exports" || aws.ToString(fake.input.ContentType) != "text/csv" {
		t.Errorf("unexpected input %+v", fake.input)
	}
	if !strings.HasPrefix(fake.body, "No.,Full Name,") {
		t.Errorf("unexpected body %q", fake.body)
	}
}

func TestArchiver_UploadError(t *testing.T) {
	a := NewArchiver(&fakePutter{err: errors.New("access denied")}, ArchiveConfig{Bucket: "exports"}, logger.NewDiscard())
	if _, err := a.Archive(context.Background(), voters(), t0); err == nil {
		t.Error("expected upload error")
	}
}
