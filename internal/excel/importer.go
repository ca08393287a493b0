package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/langbot/internal/progression"
	"github.com/example/langbot/pkg/models"
)

// Vocabulary is the part of the progression engine the importer writes through
type Vocabulary interface {
	ListVocabulary(ctx context.Context, userID int64, limit int) ([]models.VocabularyItem, error)
	AddVocabularyItem(ctx context.Context, userID int64, word, translation, example string, level models.Level) (*models.VocabularyItem, progression.Result, error)
	AwardActivity(ctx context.Context, userID int64, activity string) (progression.Result, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath          string // Path to the Excel or CSV file
	WordColumn        string // Column with the word
	TranslationColumn string // Column with the translation
	ExampleColumn     string // Column with an example sentence
	LevelColumn       string // Column with the CEFR level
	SheetName         string // Sheet to import, first sheet when empty
	StartRow          int    // The row to start importing from (1-based index)
	MaxRows           int    // Stop after this many words, 0 for no limit
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		WordColumn:        "A",
		TranslationColumn: "B",
		ExampleColumn:     "C",
		LevelColumn:       "D",
		StartRow:          2,
		MaxRows:           500,
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
	Progress       progression.Result
}

type row struct {
	num                        int
	word, translation, example string
	level                      models.Level
}

var errSkip = errors.New("skipping row")

// ImportWords imports words from an Excel or CSV file into the user's vocabulary.
// Words the user already has are skipped.
func ImportWords(ctx context.Context, vocab Vocabulary, userID int64, config ImportConfig) (*ImportResult, error) {
	var (
		rows []row
		err  error
	)
	switch strings.ToLower(filepath.Ext(config.FilePath)) {
	case ".csv":
		rows, err = readCSV(config)
	case ".xlsx", ".xlsm", ".xls":
		rows, err = readExcel(config)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(config.FilePath))
	}
	if err != nil {
		return nil, err
	}

	existing, err := vocab.ListVocabulary(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing words: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, item := range existing {
		known[strings.ToLower(item.Word)] = true
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for _, r := range rows {
		if config.MaxRows > 0 && result.Created >= config.MaxRows {
			break
		}
		result.TotalProcessed++

		if r.word == "" || r.translation == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: word and translation are required", r.num))
			continue
		}
		key := strings.ToLower(r.word)
		if known[key] {
			result.Skipped++
			continue
		}

		item, progress, err := vocab.AddVocabularyItem(ctx, userID, r.word, r.translation, r.example, r.level)
		if err != nil {
			return result, fmt.Errorf("row %d: %w", r.num, err)
		}
		if item == nil {
			return result, fmt.Errorf("user %d not found", userID)
		}
		merge(&result.Progress, progress)
		known[key] = true
		result.Created++

		progress, err = vocab.AwardActivity(ctx, userID, progression.RewardVocabularyAdd)
		if err != nil {
			return result, fmt.Errorf("row %d: %w", r.num, err)
		}
		merge(&result.Progress, progress)
	}
	return result, nil
}

func merge(dst *progression.Result, src progression.Result) {
	dst.XPAwarded += src.XPAwarded
	dst.LevelUps = append(dst.LevelUps, src.LevelUps...)
	dst.Achievements = append(dst.Achievements, src.Achievements...)
}

// readExcel reads word rows from an Excel file
func readExcel(config ImportConfig) ([]row, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	var rows []row
	for i, cols := range cells {
		if i < config.StartRow-1 {
			continue
		}
		r, err := parseRow(cols, config, i+1)
		if errors.Is(err, errSkip) {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// readCSV reads word rows from a CSV file
func readCSV(config ImportConfig) ([]row, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []row
	rowNum := 0
	for {
		cols, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		r, err := parseRow(cols, config, rowNum)
		if errors.Is(err, errSkip) {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// parseRow maps configured columns to a row. Blank rows are skipped.
func parseRow(cols []string, config ImportConfig, rowNum int) (row, error) {
	r := row{
		num:         rowNum,
		word:        cleanWord(cell(cols, config.WordColumn)),
		translation: cleanWord(cell(cols, config.TranslationColumn)),
		example:     strings.TrimSpace(cell(cols, config.ExampleColumn)),
		level:       models.Level(strings.ToUpper(strings.TrimSpace(cell(cols, config.LevelColumn)))),
	}
	if r.word == "" && r.translation == "" {
		return r, errSkip
	}
	return r, nil
}

func cell(cols []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(cols) {
		return cols[idx]
	}
	return ""
}

// cleanWord drops trailing notes in parentheses, "идти (пошёл)" becomes "идти"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
