package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fdiadmin/internal/models"
)

const SheetName = "Users"

var header = []interface{}{
	"ID", "Telegram ID", "First name", "Last name", "Phone", "Email", "Address", "Notes", "Level", "Status",
}

// WriteUsers writes users as a single-sheet XLSX workbook.
func WriteUsers(w io.Writer, users []models.User) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, u := range users {
		row := []interface{}{
			u.ID,
			u.TelegramID,
			models.Deref(u.FirstName),
			models.Deref(u.LastName),
			models.Deref(u.Phone),
			models.Deref(u.Email),
			models.Deref(u.Address),
			models.Deref(u.Notes),
			int(u.Level),
			string(u.Status),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	return f.Write(w)
}
