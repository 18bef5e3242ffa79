package simhost

import (
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/xlcall"
)

// LoadXLSX reads every worksheet of a workbook as constants. Sheets whose
// names already exist are overwritten; new names become new sheets.
// Formulas load as their cached values.
func (h *Host) LoadXLSX(r io.Reader) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return errors.Load("open workbook", err)
	}
	defer func() { _ = f.Close() }()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return errors.Load("read sheet "+name, err)
		}

		h.mu.Lock()
		var sheet *Sheet
		for _, s := range h.sheets {
			if s.Name == name {
				sheet = s
				break
			}
		}
		if sheet == nil {
			sheet = h.sheets[h.addSheetLocked(name)]
		} else {
			clear(sheet.cells)
		}
		h.mu.Unlock()

		for i, row := range rows {
			for j, raw := range row {
				if raw == "" {
					continue
				}
				axis, err := excelize.CoordinatesToCellName(j+1, i+1)
				if err != nil {
					return errors.Load("cell coordinates", err)
				}
				typ, err := f.GetCellType(name, axis)
				if err != nil {
					return errors.Load("cell type "+name+"!"+axis, err)
				}
				h.mu.Lock()
				sheet.Set(uint32(i), uint32(j), cellFromXLSX(typ, raw))
				h.mu.Unlock()
			}
		}
		h.log.Debug("loaded sheet", zap.String("name", name), zap.Int("rows", len(rows)))
	}
	return nil
}

func cellFromXLSX(typ excelize.CellType, raw string) cellmatrix.CellValue {
	switch typ {
	case excelize.CellTypeBool:
		return cellmatrix.Bool(raw == "1" || raw == "TRUE" || raw == "true")
	case excelize.CellTypeError:
		if code, ok := xlcall.ParseErrorCode(raw); ok {
			return cellmatrix.Error(code)
		}
		return cellmatrix.Error(xlcall.ErrValue)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return cellmatrix.String(raw)
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return cellmatrix.Number(v)
	}
	if code, ok := xlcall.ParseErrorCode(raw); ok {
		return cellmatrix.Error(code)
	}
	return cellmatrix.String(raw)
}

// ExportXLSX writes every sheet to w as an xlsx workbook.
func (h *Host) ExportXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, s := range h.Sheets() {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return errors.Load("rename sheet", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return errors.Load("add sheet "+s.Name, err)
		}
		h.mu.Lock()
		cells := make(map[cellKey]cellmatrix.CellValue, len(s.cells))
		for k, v := range s.cells {
			cells[k] = v
		}
		h.mu.Unlock()
		for k, v := range cells {
			if err := setXLSXCell(f, s.Name, int(k.row), int(k.col), v); err != nil {
				return err
			}
		}
	}
	if err := f.Write(w); err != nil {
		return errors.Load("write workbook", err)
	}
	return nil
}

// WriteMatrixXLSX writes a single cell matrix to w as the first sheet of a
// new workbook.
func WriteMatrixXLSX(w io.Writer, sheet string, m *cellmatrix.CellMatrix) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return errors.Load("rename sheet", err)
		}
	}
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Columns(); j++ {
			if err := setXLSXCell(f, sheet, i, j, m.At(i, j)); err != nil {
				return err
			}
		}
	}
	if err := f.Write(w); err != nil {
		return errors.Load("write workbook", err)
	}
	return nil
}

func setXLSXCell(f *excelize.File, sheet string, row, col int, v cellmatrix.CellValue) error {
	if v.IsEmpty() {
		return nil
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return errors.Load("cell coordinates", err)
	}
	var value any
	switch v.Kind() {
	case cellmatrix.KindNumber:
		value = v.NumericValue()
	case cellmatrix.KindBool:
		value = v.BoolValue()
	default:
		value = v.String()
	}
	if err := f.SetCellValue(sheet, axis, value); err != nil {
		return errors.Load("set cell "+sheet+"!"+axis, err)
	}
	return nil
}
