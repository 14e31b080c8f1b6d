package db

import (
	"context"
	"encoding/csv"
	"os"
	"strings"
)

type preferenceRecord struct {
	Key   string
	Value string
}

// LoadPreferences reads key,value rows from a CSV with a header row and
// upserts them.
func LoadPreferences(ctx context.Context, store *Store, path string) (int, error) {
	if !store.Enabled() {
		return 0, nil
	}
	records, err := readPreferences(path)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, record := range records {
		if err := store.SetPreference(ctx, record.Key, record.Value); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

func readPreferences(path string) ([]preferenceRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var records []preferenceRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			continue
		}
		key := strings.TrimSpace(row[0])
		if key == "" {
			continue
		}
		records = append(records, preferenceRecord{Key: key, Value: strings.TrimSpace(row[1])})
	}
	return records, nil
}
