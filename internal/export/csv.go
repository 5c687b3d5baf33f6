// Package export writes the voter table as CSV.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/abrezinsky/voterreg/internal/filter"
	"github.com/abrezinsky/voterreg/internal/models"
)

// DefaultChunkSize is how many rows are written between flushes
const DefaultChunkSize = 500

// Header is the fixed first row of every export. It is written unquoted.
var Header = []string{
	"No.",
	"Full Name",
	"Email",
	"Organization",
	"Date Of Birth",
	"Gender",
	"Region",
	"Constituency",
	"ID Type",
	"ID Number",
	"Registration Date",
}

// RegistrationDateLayout formats created_at in the export
const RegistrationDateLayout = "2006-01-02 15:04:05"

// Filename returns voters_export_<YYYY-MM-DD>.csv for now
func Filename(now time.Time) string {
	return fmt.Sprintf("voters_export_%s.csv", now.Format("2006-01-02"))
}

// Writer streams rows in chunks, flushing after each one
type Writer struct {
	w         *bufio.Writer
	chunkSize int
	// OnChunk is called after each flushed chunk with the rows written so far
	OnChunk func(written int)
}

// NewWriter creates a CSV writer. A non-positive chunkSize uses DefaultChunkSize.
func NewWriter(w io.Writer, chunkSize int) *Writer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Writer{w: bufio.NewWriter(w), chunkSize: chunkSize}
}

// quote wraps a field in double quotes, doubling embedded quotes
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (cw *Writer) writeRow(fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := cw.w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := cw.w.WriteString(quote(f)); err != nil {
			return err
		}
	}
	_, err := cw.w.WriteString("\r\n")
	return err
}

// Row renders one voter. n is the 1-based position in the export.
func Row(n int, v models.Voter) []string {
	created := ""
	if !v.CreatedAt.IsZero() {
		created = v.CreatedAt.UTC().Format(RegistrationDateLayout)
	}
	return []string{
		strconv.Itoa(n),
		v.FullName,
		v.Email,
		v.Organization,
		v.DateOfBirth,
		string(v.Gender),
		v.Region,
		v.Constituency,
		v.IDType.Label(),
		v.IDNumber,
		created,
	}
}

// Write emits the header and every voter in first come first served order.
// voters is not modified.
func (cw *Writer) Write(voters []models.Voter) error {
	sorted := make([]models.Voter, len(voters))
	copy(sorted, voters)
	filter.SortFCFS(sorted)

	if _, err := cw.w.WriteString(strings.Join(Header, ",") + "\r\n"); err != nil {
		return err
	}

	for start := 0; start < len(sorted); start += cw.chunkSize {
		end := start + cw.chunkSize
		if end > len(sorted) {
			end = len(sorted)
		}
		for i := start; i < end; i++ {
			if err := cw.writeRow(Row(i+1, sorted[i])); err != nil {
				return err
			}
		}
		if err := cw.w.Flush(); err != nil {
			return err
		}
		if cw.OnChunk != nil {
			cw.OnChunk(end)
		}
	}
	return cw.w.Flush()
}

// WriteCSV writes voters to w with the default chunk size
func WriteCSV(w io.Writer, voters []models.Voter) error {
	return NewWriter(w, DefaultChunkSize).Write(voters)
}
