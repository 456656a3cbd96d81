package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"klineDownloader/internal/domain"
)

// CSVHeader is the fixed column order of a series file.
var CSVHeader = []string{"Timestamp", "Open Price", "High Price", "Low Price", "Close Price", "Volume", "Turnover"}

// WriteSeriesToCSV creates filename and writes series to it, one row per kline.
func WriteSeriesToCSV(series domain.Series, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := EncodeSeries(file, series); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// EncodeSeries writes the header and one row per kline to w.
func EncodeSeries(w io.Writer, series domain.Series) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader); err != nil {
		return err
	}
	for _, k := range series {
		if err := writer.Write(k.Tuple()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSeriesFromCSV loads a file written by WriteSeriesToCSV.
func ReadSeriesFromCSV(filename string) (domain.Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return DecodeSeries(file)
}

// DecodeSeries parses a header row followed by kline rows.
func DecodeSeries(r io.Reader) (domain.Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, err
	}
	for i, name := range CSVHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], name)
		}
	}

	series := make(domain.Series, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		k, err := domain.NewKlineFromTuple(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		series = append(series, k)
	}
	return series, nil
}
