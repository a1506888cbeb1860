package sink_test

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/manolodalbo/nurse-cadet/internal/logging"
	"github.com/manolodalbo/nurse-cadet/internal/record"
	"github.com/manolodalbo/nurse-cadet/internal/services"
	"github.com/manolodalbo/nurse-cadet/internal/sink"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCSVAppenderWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "table.csv")
	table := sink.NewCSV(path, []string{"a", "b"})
	if err := table.Append([]string{"1", "2"}); err != nil {
		t.Fatalf("first append: %v", err)
	}

	reopened := sink.NewCSV(path, []string{"a", "b"})
	if err := reopened.Append([]string{"3", "4"}, []string{"5", "6"}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	want := [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}, {"5", "6"}}
	if diff := cmp.Diff(want, readCSV(t, path)); diff != "" {
		t.Fatalf("unexpected table (-want +got):\n%s", diff)
	}
}

func TestCSVAppenderWritesHeaderIntoEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.NewCSV(path, []string{"a"}).Append([]string{"x"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if diff := cmp.Diff([][]string{{"a"}, {"x"}}, readCSV(t, path)); diff != "" {
		t.Fatalf("unexpected table (-want +got):\n%s", diff)
	}
}

func TestCSVAppenderRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte("x,y\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := sink.NewCSV(path, []string{"a", "b"}).Append([]string{"3", "4"})
	if !errors.Is(err, sink.ErrHeaderMismatch) {
		t.Fatalf("expected ErrHeaderMismatch, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "x,y\n1,2\n" {
		t.Fatalf("foreign table must be left untouched, got %q", data)
	}
}

func TestCSVAppenderRepairsTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n3"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.NewCSV(path, []string{"a", "b"}).Append([]string{"5", "6"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows := readCSV(t, path)
	if got := rows[len(rows)-1]; !cmp.Equal(got, []string{"5", "6"}) {
		t.Fatalf("new row merged with damaged tail: %v", rows)
	}
}

func TestCSVAppenderQuotesEmbeddedDelimiters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := sink.NewCSV(path, []string{"name", "note"}).Append([]string{"Doe, Jane", "said \"hi\"\nthen left"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows := readCSV(t, path)
	if diff := cmp.Diff([]string{"Doe, Jane", "said \"hi\"\nthen left"}, rows[1]); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

type memoryAppender struct {
	mu    sync.Mutex
	calls int
	rows  [][]string
	err   error
}

func (m *memoryAppender) Append(rows ...[]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls++
	m.rows = append(m.rows, rows...)
	return nil
}

func cadet(file string) record.Record {
	return record.Record{LastName: record.String("Doe"), File: file}
}

func TestSinkFlushesAtBatchSize(t *testing.T) {
	appender := &memoryAppender{}
	var hooked []int
	s := sink.New(appender, 3, logging.NewNop(), sink.WithFlushHook(func(rows int) {
		hooked = append(hooked, rows)
	}))
	ctx := context.Background()

	for i := range 2 {
		if err := s.Add(ctx, cadet(fmt.Sprintf("card_%d.jpg", i))); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if appender.calls != 0 || s.Pending() != 2 {
		t.Fatalf("expected buffering below batch size, calls=%d pending=%d", appender.calls, s.Pending())
	}
	if err := s.Add(ctx, cadet("card_2.jpg")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if appender.calls != 1 || s.Pending() != 0 || s.Flushed() != 3 {
		t.Fatalf("expected one flush of 3, calls=%d pending=%d flushed=%d", appender.calls, s.Pending(), s.Flushed())
	}

	if err := s.Add(ctx, cadet("card_3.jpg")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
	if appender.calls != 2 || s.Flushed() != 4 {
		t.Fatalf("expected drain flush of remainder, calls=%d flushed=%d", appender.calls, s.Flushed())
	}
	if !cmp.Equal(hooked, []int{3, 1}) {
		t.Fatalf("unexpected flush hook calls: %v", hooked)
	}
}

func TestSinkFlushFailureKeepsBuffer(t *testing.T) {
	appender := &memoryAppender{err: errors.New("disk full")}
	s := sink.New(appender, 1, logging.NewNop())
	err := s.Add(context.Background(), cadet("card.jpg"))
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if s.Pending() != 1 || s.Flushed() != 0 {
		t.Fatalf("failed flush must keep rows buffered, pending=%d flushed=%d", s.Pending(), s.Flushed())
	}
}

func TestSinkConcurrentAddsWriteEveryRowOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	s := sink.New(sink.NewCSV(path, record.Header()), 7, logging.NewNop())
	ctx := context.Background()

	const workers, perWorker = 16, 25
	var wg sync.WaitGroup
	for w := range workers {
		wg.Go(func() {
			for i := range perWorker {
				if err := s.Add(ctx, cadet(fmt.Sprintf("w%02d_%02d.jpg", w, i))); err != nil {
					t.Errorf("add: %v", err)
				}
				if i%10 == 0 {
					if err := s.Flush(ctx); err != nil {
						t.Errorf("flush: %v", err)
					}
				}
			}
		})
	}
	wg.Wait()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("final flush: %v", err)
	}

	rows := readCSV(t, path)
	if !cmp.Equal(rows[0], record.Header()) {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	files := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		files = append(files, row[len(row)-1])
	}
	if len(files) != workers*perWorker {
		t.Fatalf("expected %d rows, got %d", workers*perWorker, len(files))
	}
	sort.Strings(files)
	for i := 1; i < len(files); i++ {
		if files[i] == files[i-1] {
			t.Fatalf("row %s written twice", files[i])
		}
	}
	if s.Flushed() != workers*perWorker {
		t.Fatalf("flushed counter %d", s.Flushed())
	}
}

func TestErrorLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.csv")
	log := sink.NewErrorLog(path)
	if err := log.Append("a.jpg", "Blank card / no data found"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append("b.jpg", "System error: boom, again"); err != nil {
		t.Fatalf("append: %v", err)
	}
	want := [][]string{
		{"filename", "reason"},
		{"a.jpg", "Blank card / no data found"},
		{"b.jpg", "System error: boom, again"},
	}
	if diff := cmp.Diff(want, readCSV(t, path)); diff != "" {
		t.Fatalf("unexpected error log (-want +got):\n%s", diff)
	}
	if log.Path() != path {
		t.Fatalf("unexpected path %q", log.Path())
	}
}

func TestExportWorkbook(t *testing.T) {
	dir := t.TempDir()
	recordsPath := filepath.Join(dir, "records.csv")
	errorsPath := filepath.Join(dir, "errors.csv")
	if err := sink.NewCSV(recordsPath, record.Header()).Append(cadet("a.jpg").Row(), cadet("b.jpg").Row()); err != nil {
		t.Fatalf("seed records: %v", err)
	}
	if err := sink.NewErrorLog(errorsPath).Append("c.jpg", "Blank card / no data found"); err != nil {
		t.Fatalf("seed errors: %v", err)
	}

	out := filepath.Join(dir, "export", "cards.xlsx")
	stats, err := sink.ExportWorkbook(recordsPath, errorsPath, out)
	if err != nil {
		t.Fatalf("ExportWorkbook: %v", err)
	}
	if stats.Records != 2 || stats.Errors != 1 || stats.Path != out {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{"Records", "Errors"}, f.GetSheetList()); diff != "" {
		t.Fatalf("unexpected sheets (-want +got):\n%s", diff)
	}
	header, err := f.GetCellValue("Records", "A1")
	if err != nil || header != "card_type" {
		t.Fatalf("unexpected records header %q (err=%v)", header, err)
	}
	lastName, err := f.GetCellValue("Records", "C2")
	if err != nil || lastName != "Doe" {
		t.Fatalf("unexpected C2 %q (err=%v)", lastName, err)
	}
	reason, err := f.GetCellValue("Errors", "B2")
	if err != nil || !strings.HasPrefix(reason, "Blank card") {
		t.Fatalf("unexpected error reason %q (err=%v)", reason, err)
	}
}

func TestExportWorkbookToleratesMissingTables(t *testing.T) {
	dir := t.TempDir()
	stats, err := sink.ExportWorkbook(filepath.Join(dir, "none.csv"), filepath.Join(dir, "nope.csv"), filepath.Join(dir, "out.xlsx"))
	if err != nil {
		t.Fatalf("ExportWorkbook: %v", err)
	}
	if stats.Records != 0 || stats.Errors != 0 {
		t.Fatalf("expected empty export, got %+v", stats)
	}
}
