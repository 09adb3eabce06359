package report

import (
	"context"
	"fmt"
	"time"

	"go-clm/internal/common/models"
	"go-clm/internal/features/approval"
	"go-clm/internal/features/contract"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var registerColumns = []string{
	"Contract ID",
	"Title",
	"Counterparty",
	"Status",
	"Legal Review",
	"Finance Review",
	"Submitted",
	"Approved",
	"Signed",
}

// ReportService builds the contract register export for an organization.
type ReportService interface {
	ContractRegisterXLSX(ctx context.Context, orgID primitive.ObjectID, status models.ContractStatus) ([]byte, string, error)
}

type ReportServiceImpl struct {
	ContractRepo contract.ContractRepository
	ApprovalRepo approval.ApprovalRepository
}

func NewReportService(contractRepo contract.ContractRepository, approvalRepo approval.ApprovalRepository) ReportService {
	return &ReportServiceImpl{
		ContractRepo: contractRepo,
		ApprovalRepo: approvalRepo,
	}
}

func (s *ReportServiceImpl) ContractRegisterXLSX(ctx context.Context, orgID primitive.ObjectID, status models.ContractStatus) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Contract Register"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range registerColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 2
	page := int64(1)
	limit := int64(500)

	for {
		contracts, _, err := s.ContractRepo.List(ctx, orgID, status, page, limit)
		if err != nil {
			return nil, "", err
		}
		if len(contracts) == 0 {
			break
		}

		for i := range contracts {
			if err := s.writeRow(ctx, f, sheetName, row, &contracts[i]); err != nil {
				return nil, "", err
			}
			row++
		}

		if int64(len(contracts)) < limit {
			break
		}
		page++
	}

	for i := range registerColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 22)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("contract-register-%s.xlsx", time.Now().Format("2006-01-02"))
	return buffer.Bytes(), filename, nil
}

func (s *ReportServiceImpl) writeRow(ctx context.Context, f *excelize.File, sheetName string, row int, c *models.Contract) error {
	gates, err := s.ApprovalRepo.FindLiveByContract(ctx, c.ID)
	if err != nil {
		return err
	}

	var legal, finance string
	for _, g := range gates {
		switch g.Type {
		case models.ApprovalTypeLegal:
			legal = string(g.Status)
		case models.ApprovalTypeFinance:
			finance = string(g.Status)
		}
	}

	values := []interface{}{
		c.ID.Hex(),
		c.Title,
		c.CounterpartyName,
		string(c.Status),
		legal,
		finance,
		formatTime(c.SubmittedAt),
		formatTime(c.ApprovedAt),
		formatTime(c.SignedAt),
	}

	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheetName, cell, v)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
