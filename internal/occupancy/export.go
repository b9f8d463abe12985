package occupancy

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"lot_id", "spot_id", "taken"}

// WriteCSV writes records with a header row. taken is "true" or "false".
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{strconv.Itoa(r.LotID), r.SpotID, strconv.FormatBool(r.Taken)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the output of WriteCSV.
func ReadCSV(r io.Reader) ([]Record, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("read csv: missing header")
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(CSVHeader) {
			return nil, fmt.Errorf("read csv: row %d has %d fields", i+1, len(row))
		}
		lotID, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d lot_id: %w", i+1, err)
		}
		taken, err := strconv.ParseBool(row[2])
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d taken: %w", i+1, err)
		}
		records = append(records, Record{LotID: lotID, SpotID: row[1], Taken: taken})
	}
	return records, nil
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// SaveCSV writes records to path.
func SaveCSV(path string, records []Record) error {
	return saveFile(path, records, WriteCSV)
}

// SaveJSON writes records to path.
func SaveJSON(path string, records []Record) error {
	return saveFile(path, records, WriteJSON)
}

func saveFile(path string, records []Record, write func(io.Writer, []Record) error) error {
	var buf bytes.Buffer
	if err := write(&buf, records); err != nil {
		return fmt.Errorf("encode occupancy: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
