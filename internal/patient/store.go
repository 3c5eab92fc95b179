package patient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"covidtrack/internal/logging"
)

// maxLineSize bounds a single stored line.
const maxLineSize = 1024 * 1024

// ReadRecords decodes every non-empty line of r in order. Lines that fail to
// decode are skipped and returned as *MalformedRecordError values carrying
// their 1-based line number.
func ReadRecords(r io.Reader) ([]Record, []error) {
	var (
		records []Record
		errs    []error
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimRight(line, "\r") == "" {
			continue
		}
		rec, err := Decode(line)
		if err != nil {
			var mre *MalformedRecordError
			if errors.As(err, &mre) {
				mre.Line = lineNo
			}
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("read patient records: %w", err))
	}

	return records, errs
}

// WriteRecords writes one encoded line per record, each terminated by a line break.
func WriteRecords(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := bw.WriteString(Encode(rec) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FindIndexByID returns the index of the first record with the given id.
// The boolean is false when no record matches.
func FindIndexByID(records []Record, id int) (int, bool) {
	for i := range records {
		if records[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// NextID returns one more than the largest id in records, or 0 for an empty set.
func NextID(records []Record) int {
	next := 0
	for _, rec := range records {
		if rec.ID >= next {
			next = rec.ID + 1
		}
	}
	return next
}

// Store is the patient file. Every call reads or rewrites the whole file;
// nothing is cached between calls.
type Store struct {
	path string
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// LoadAll reads every record in file order. A missing or unreadable file is an
// empty store. Malformed lines are skipped and logged.
func (s *Store) LoadAll() []Record {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.StoreDebug("Patient file %s not found, starting empty", s.path)
		} else {
			logging.Get(logging.CategoryStore).Warn("Patient file %s unreadable, treating as empty: %v", s.path, err)
		}
		return []Record{}
	}
	defer f.Close()

	records, errs := ReadRecords(f)
	for _, err := range errs {
		logging.Get(logging.CategoryStore).Warn("Skipping record in %s: %v", s.path, err)
		var mre *MalformedRecordError
		if errors.As(err, &mre) {
			logging.Audit().RecordSkipped(s.path, mre.Line, mre.Reason)
		}
	}
	if records == nil {
		records = []Record{}
	}

	logging.StoreDebug("Loaded %d patient records from %s", len(records), s.path)
	return records
}

// Malformed counts the lines of the current file that LoadAll would skip.
// A missing file has none.
func (s *Store) Malformed() int {
	f, err := os.Open(s.path)
	if err != nil {
		return 0
	}
	defer f.Close()

	_, errs := ReadRecords(f)
	n := 0
	for _, err := range errs {
		var mre *MalformedRecordError
		if errors.As(err, &mre) {
			n++
		}
	}
	return n
}

// SaveAll replaces the file contents with records, in order. Malformed lines
// in the file being replaced are lost; their count is logged and audited.
func (s *Store) SaveAll(records []Record) error {
	if dropped := s.Malformed(); dropped > 0 {
		logging.Get(logging.CategoryStore).Warn("Rewriting %s drops %d malformed lines", s.path, dropped)
		logging.Audit().RecordsDropped(s.path, dropped)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create patient directory: %w", err)
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("open patient file: %w", err)
	}
	if err := WriteRecords(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write patient file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close patient file: %w", err)
	}

	logging.Store("Saved %d patient records to %s", len(records), s.path)
	return nil
}
