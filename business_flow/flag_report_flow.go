package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/repository"
	"github.com/xuri/excelize/v2"
)

// FlagReportFlow exports the live flags table as a workbook for the
// marketing team, one sheet per flag type.
type FlagReportFlow interface {
	DownloadFlagsExcel(ctx context.Context) (string, []byte, error)
}

// FlagReportFlowImpl implements the flag report business flow
type FlagReportFlowImpl struct {
	flagRepo     repository.FlagRepository
	customerRepo repository.CustomerRepository
}

// NewFlagReportFlow creates a new flag report flow instance
func NewFlagReportFlow(flagRepo repository.FlagRepository, customerRepo repository.CustomerRepository) FlagReportFlow {
	return &FlagReportFlowImpl{flagRepo: flagRepo, customerRepo: customerRepo}
}

func (f *FlagReportFlowImpl) DownloadFlagsExcel(ctx context.Context) (string, []byte, error) {
	flags, err := f.flagRepo.ListAll(ctx)
	if err != nil {
		return "", nil, NewBusinessError("FLAG_LOAD_FAILED", "Failed to load persisted flags", err)
	}
	customers, err := f.customerRepo.ListAll(ctx)
	if err != nil {
		return "", nil, NewBusinessError("CUSTOMER_LOAD_FAILED", "Failed to load customers", err)
	}
	contactByUUID := make(map[string]*models.Customer, len(customers))
	for _, c := range customers {
		contactByUUID[c.UUID.String()] = c
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	byType := make(map[string][]*models.Flag)
	order := make([]string, 0)
	for _, fl := range flags {
		if _, ok := byType[fl.FlagType]; !ok {
			order = append(order, fl.FlagType)
		}
		byType[fl.FlagType] = append(byType[fl.FlagType], fl)
	}

	usedNames := map[string]bool{}
	for i, flagType := range order {
		base := sanitizeSheetName(flagType)
		name := base
		for n := 2; usedNames[name]; n++ {
			name = fmt.Sprintf("%.28s_%d", base, n)
		}
		usedNames[name] = true
		if i == 0 {
			xl.SetSheetName(xl.GetSheetName(0), name)
		} else {
			_, _ = xl.NewSheet(name)
		}

		header := []string{"customer_uuid", "email", "phone", "name", "priority", "triggered_date", "flag_added_date", "experiment_id", "ab_group"}
		_ = xl.SetSheetRow(name, "A1", &header)

		for ri, fl := range byType[flagType] {
			email, phone, custName := "", "", ""
			if c, ok := contactByUUID[fl.CustomerUUID.String()]; ok {
				if c.PrimaryEmail != nil {
					email = *c.PrimaryEmail
				}
				if c.PrimaryPhone != nil {
					phone = *c.PrimaryPhone
				}
				if c.PrimaryName != nil {
					custName = *c.PrimaryName
				}
			}
			experimentID, abGroup, _ := fl.ExperimentInfo()
			record := []string{
				fl.CustomerUUID.String(),
				email,
				phone,
				custName,
				fl.Priority,
				fl.TriggeredDate.UTC().Format(time.RFC3339),
				fl.FlagAddedDate.UTC().Format(time.RFC3339),
				experimentID,
				abGroup,
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(name, cellRef, &record)
		}
	}

	if len(order) == 0 {
		xl.SetSheetName(xl.GetSheetName(0), "flags")
		header := []string{"customer_uuid", "email", "phone", "name", "priority", "triggered_date", "flag_added_date", "experiment_id", "ab_group"}
		_ = xl.SetSheetRow("flags", "A1", &header)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := "flags_by_type_" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	return filename, buf.Bytes(), nil
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	return truncateSheetName(strings.TrimSpace(replacer.Replace(name)))
}

func truncateSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}
