// Package parser turns uploaded spreadsheets into knowledge entries.
//
// Every sheet is read as a header row followed by data rows. Columns are
// matched case-insensitively after trimming: Category, Question, Answer and
// Source. Sheets without both Question and Answer are skipped, rows with an
// empty question or answer are dropped, and neither aborts the batch.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"kbchat/internal/models"

	"go.uber.org/zap"
)

const (
	DefaultCategory = "General"
	DefaultSource   = "uploaded file"

	ColumnCategory = "category"
	ColumnQuestion = "question"
	ColumnAnswer   = "answer"
	ColumnSource   = "source"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnreadableFile    = errors.New("unreadable file")
)

// Sheet is one table of raw cell text. Rows[0] is the header.
type Sheet struct {
	Name string
	Rows [][]string
}

// Row maps a normalized column name to the raw cell text of one data row.
// Unknown columns are kept; only the projection into a KnowledgeEntry
// decides what is used.
type Row map[string]string

// Get returns the cleaned value of a column, or "" when absent.
func (r Row) Get(column string) string {
	return cleanCell(r[column])
}

// cleanCell drops invalid UTF-8, which PostgreSQL rejects in text columns,
// then trims surrounding whitespace.
func cleanCell(value string) string {
	return strings.TrimSpace(strings.ToValidUTF8(value, ""))
}

type Parser struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads a workbook or CSV file, chosen by the file name's extension.
func (p *Parser) Parse(r io.Reader, fileName string) ([]*models.KnowledgeEntry, error) {
	var (
		sheets []Sheet
		err    error
	)

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		sheets, err = readWorkbook(r)
	case ".csv":
		sheets, err = readCSV(r, fileName)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}

	return p.ParseSheets(sheets, fileName), nil
}

// ParseSheets projects already-read sheets into knowledge entries.
func (p *Parser) ParseSheets(sheets []Sheet, fileName string) []*models.KnowledgeEntry {
	defaultSource := cleanCell(fileName)
	if defaultSource == "" {
		defaultSource = DefaultSource
	}

	var entries []*models.KnowledgeEntry
	for _, sheet := range sheets {
		entries = append(entries, p.parseSheet(sheet, defaultSource)...)
	}
	return entries
}

func (p *Parser) parseSheet(sheet Sheet, defaultSource string) []*models.KnowledgeEntry {
	if len(sheet.Rows) == 0 {
		p.logger.Debug("Sheet is empty, skipping", zap.String("sheet", sheet.Name))
		return nil
	}

	header := normalizeHeader(sheet.Rows[0])
	if !hasColumn(header, ColumnQuestion) || !hasColumn(header, ColumnAnswer) {
		p.logger.Warn("Sheet missing 'Question' or 'Answer' column, skipping",
			zap.String("sheet", sheet.Name),
		)
		return nil
	}

	var entries []*models.KnowledgeEntry
	dropped := 0
	for i, cells := range sheet.Rows[1:] {
		entry, ok := project(toRow(header, cells), defaultSource)
		if !ok {
			dropped++
			p.logger.Debug("Row missing question or answer, dropping",
				zap.String("sheet", sheet.Name),
				zap.Int("row", i+2),
			)
			continue
		}
		entries = append(entries, entry)
	}

	p.logger.Info("Sheet parsed",
		zap.String("sheet", sheet.Name),
		zap.Int("entries", len(entries)),
		zap.Int("dropped", dropped),
	)
	return entries
}

// normalizeHeader lower-cases and trims header cells. A repeated column name
// keeps its first position.
func normalizeHeader(cells []string) []string {
	seen := make(map[string]bool, len(cells))
	header := make([]string, len(cells))
	for i, cell := range cells {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		header[i] = name
	}
	return header
}

func hasColumn(header []string, column string) bool {
	for _, name := range header {
		if name == column {
			return true
		}
	}
	return false
}

func toRow(header []string, cells []string) Row {
	row := make(Row, len(header))
	for i, name := range header {
		if name == "" || i >= len(cells) {
			continue
		}
		row[name] = cells[i]
	}
	return row
}

func project(row Row, defaultSource string) (*models.KnowledgeEntry, bool) {
	question := row.Get(ColumnQuestion)
	answer := row.Get(ColumnAnswer)
	if question == "" || answer == "" {
		return nil, false
	}

	category := row.Get(ColumnCategory)
	if category == "" {
		category = DefaultCategory
	}
	source := row.Get(ColumnSource)
	if source == "" {
		source = defaultSource
	}

	return &models.KnowledgeEntry{
		Category: category,
		Question: question,
		Answer:   answer,
		Source:   source,
	}, true
}
