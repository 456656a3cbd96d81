package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type WriterTestSuite struct {
	suite.Suite
	dir    string
	writer *Writer
	ctx    context.Context
}

func (s *WriterTestSuite) SetupTest() {
	s.dir = filepath.Join(s.T().TempDir(), "out")
	w, err := New(Config{Dir: s.dir, Logger: &mockLogger{}})
	s.Require().NoError(err)
	s.writer = w
	s.ctx = context.Background()
}

func (s *WriterTestSuite) series() domain.Series {
	var out domain.Series
	for _, tuple := range [][]string{
		{"1717200000000", "67500", "67800", "67400", "67650", "1000", "14.8"},
		{"1717203600000", "67650", "67700", "67500", "67600", "2000", "29.6"},
	} {
		k, err := domain.NewKlineFromTuple(tuple)
		s.Require().NoError(err)
		out = append(out, k)
	}
	return out
}

func (s *WriterTestSuite) TestWriteSeries_CreatesDirectoryAndFile() {
	path, err := s.writer.WriteSeries(s.ctx, "BTCUSD", s.series())
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.dir, "BTCUSD_kline_data.csv"), path)

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Equal("Timestamp,Open Price,High Price,Low Price,Close Price,Volume,Turnover\n"+
		"1717200000000,67500,67800,67400,67650,1000,14.8\n"+
		"1717203600000,67650,67700,67500,67600,2000,29.6\n", string(data))
}

func (s *WriterTestSuite) TestWriteSeries_OverwritesPreviousFile() {
	_, err := s.writer.WriteSeries(s.ctx, "BTCUSD", s.series())
	s.Require().NoError(err)

	path, err := s.writer.WriteSeries(s.ctx, "BTCUSD", s.series()[:1])
	s.Require().NoError(err)

	got, err := s.writer.LoadSeries(s.ctx, "BTCUSD")
	s.Require().NoError(err)
	s.Len(got, 1)
	s.FileExists(path)
}

func (s *WriterTestSuite) TestWriteSeries_EmptySeriesWritesHeader() {
	path, err := s.writer.WriteSeries(s.ctx, "ETHUSD", nil)
	s.Require().NoError(err)

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Equal("Timestamp,Open Price,High Price,Low Price,Close Price,Volume,Turnover\n", string(data))
}

func (s *WriterTestSuite) TestWriteSeries_RejectsPathSeparators() {
	for _, symbol := range []string{"", "../BTC", `BTC\USD`, "..", "a/b"} {
		_, err := s.writer.WriteSeries(s.ctx, symbol, s.series())
		s.ErrorIs(err, ports.ErrInvalidRequest, "symbol %q", symbol)
	}
	s.NoDirExists(s.dir)
}

func (s *WriterTestSuite) TestWriteSeries_UnwritableDirectory() {
	blocker := filepath.Join(s.T().TempDir(), "file")
	s.Require().NoError(os.WriteFile(blocker, []byte("x"), 0644))

	w, err := New(Config{Dir: filepath.Join(blocker, "sub"), Logger: &mockLogger{}})
	s.Require().NoError(err)

	_, err = w.WriteSeries(s.ctx, "BTCUSD", s.series())
	s.ErrorIs(err, ports.ErrWriteFailed)
}

func (s *WriterTestSuite) TestLoadSeries_Missing() {
	_, err := s.writer.LoadSeries(s.ctx, "NOPE")
	s.ErrorIs(err, ports.ErrNotFound)
}

func (s *WriterTestSuite) TestNew_Defaults() {
	_, err := New(Config{})
	s.Error(err)

	w, err := New(Config{Logger: &mockLogger{}})
	s.Require().NoError(err)
	s.Equal(DefaultDir, w.Dir())
}

func TestWriterTestSuite(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}
