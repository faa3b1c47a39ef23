package extract

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// bulkEntry is one element of a JSON export: either a bare string or an
// object naming the video by url or id.
type bulkEntry struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

func (e *bulkEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.URL = s
		return nil
	}
	type plain bulkEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = bulkEntry(p)
	return nil
}

// ParseJSON reads a JSON array of video references.
func ParseJSON(r io.Reader) ([]string, error) {
	var entries []bulkEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode JSON video list: %w", err)
	}

	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		ref := e.URL
		if ref == "" {
			ref = e.ID
		}
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// ParseCSV reads the first column of every row. Header rows simply fail
// extraction later and are counted as rejected.
func ParseCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var refs []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV video list: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		if ref := strings.TrimSpace(record[0]); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// SplitLinks splits a free-form list of links on commas and whitespace.
func SplitLinks(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\r' || r == '\t'
	})
}

// VideoIDs extracts a video ID from every reference and reports how many
// references did not contain one. Duplicates are kept; de-duplication is the
// pipeline's job.
func VideoIDs(refs []string) (ids []string, rejected int) {
	ids = make([]string, 0, len(refs))
	for _, ref := range refs {
		id, ok := VideoID(ref)
		if !ok {
			rejected++
			continue
		}
		ids = append(ids, id)
	}
	return ids, rejected
}
