package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"leasekeeper/models"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ExportFormat - формат выгрузки графика обязательств
type ExportFormat string

const (
	ExportFormatXML  ExportFormat = "xml"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportFile - готовый файл выгрузки
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type obligationColumn struct {
	Key    string
	Header string
	Value  func(o models.PaymentObligation) any
}

var obligationColumns = []obligationColumn{
	{Key: "id", Header: "ID", Value: func(o models.PaymentObligation) any { return o.ID }},
	{Key: "period", Header: "Период", Value: func(o models.PaymentObligation) any { return o.Period().String() }},
	{Key: "due_date", Header: "Срок оплаты", Value: func(o models.PaymentObligation) any { return o.DueDate.Format(time.DateOnly) }},
	{Key: "amount_due", Header: "Сумма", Value: func(o models.PaymentObligation) any { return o.AmountDue.StringFixed(2) }},
	{Key: "status", Header: "Статус", Value: func(o models.PaymentObligation) any { return string(o.Status) }},
	{Key: "responsible_user_id", Header: "Ответственный", Value: func(o models.PaymentObligation) any {
		if o.ResponsibleUserID == nil {
			return ""
		}
		return *o.ResponsibleUserID
	}},
}

// ExportService выгружает график обязательств договора для бухгалтерии
type ExportService struct {
	contracts   *ContractService
	obligations *ObligationService
}

// NewExportService создает новый экземпляр ExportService
func NewExportService(contracts *ContractService, obligations *ObligationService) *ExportService {
	return &ExportService{contracts: contracts, obligations: obligations}
}

// ExportContractObligations формирует файл с обязательствами договора
func (s *ExportService) ExportContractObligations(ctx context.Context, contractID uint, format ExportFormat) (*ExportFile, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}

	obligations, err := s.obligations.List(ctx, ObligationFilter{ContractID: &contract.ID})
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("contract_%d_obligations_%s", contract.ID, uuid.NewString())

	switch format {
	case ExportFormatXML:
		data, err := ObligationsXML(contract, obligations)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Name: name + ".xml", ContentType: "application/xml", Data: data}, nil
	case ExportFormatXLSX, "":
		data, err := ObligationsXLSX(contract, obligations)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Name:        name + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, validationErrorf("неизвестный формат выгрузки %q", format)
	}
}

// ObligationsXML строит XML-документ с графиком обязательств
func ObligationsXML(contract *models.LeaseContract, obligations []models.PaymentObligation) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Schedule")
	c := root.CreateElement("Contract")
	c.CreateAttr("id", strconv.FormatUint(uint64(contract.ID), 10))
	c.CreateAttr("property_id", strconv.FormatUint(uint64(contract.PropertyID), 10))
	c.CreateAttr("tenant_id", strconv.FormatUint(uint64(contract.TenantID), 10))
	c.CreateAttr("status", string(contract.Status))
	c.CreateAttr("due_day", strconv.Itoa(contract.DueDay))
	c.CreateAttr("rent_amount", contract.RentAmount.StringFixed(2))

	list := root.CreateElement("Obligations")
	for _, o := range obligations {
		el := list.CreateElement("Obligation")
		for _, col := range obligationColumns {
			el.CreateElement(col.Key).SetText(fmt.Sprint(col.Value(o)))
		}
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("ошибка при формировании XML: %w", err)
	}
	return data, nil
}

// ObligationsXLSX строит книгу Excel с графиком обязательств
func ObligationsXLSX(contract *models.LeaseContract, obligations []models.PaymentObligation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Obligations"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("ошибка при создании листа: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: fmt.Sprintf("Договор %d", contract.ID)}); err != nil {
		return nil, fmt.Errorf("ошибка при записи свойств книги: %w", err)
	}

	for i, col := range obligationColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("ошибка при адресации заголовка: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, col.Header); err != nil {
			return nil, fmt.Errorf("ошибка при записи заголовка: %w", err)
		}
	}

	for rowIdx, o := range obligations {
		for colIdx, col := range obligationColumns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("ошибка при адресации ячейки: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, col.Value(o)); err != nil {
				return nil, fmt.Errorf("ошибка при записи ячейки %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка при формировании XLSX: %w", err)
	}
	return buf.Bytes(), nil
}
