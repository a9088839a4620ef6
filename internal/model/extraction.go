package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// EntryPrintLineItem is one tariff line on a customs entry print.
type EntryPrintLineItem struct {
	LineNo       int     `json:"lineNo"`
	Tariff       string  `json:"tariff"`
	Stat         string  `json:"stat"`
	Quantity     float64 `json:"quantity"`
	QuantityUnit string  `json:"quantityUnit"`
	Trt          string  `json:"trt"`
	OriginPref   string  `json:"originPref"`
	InvoicePrice float64 `json:"invoicePrice"`
	CustomsValue float64 `json:"customsValue"`
	DutyRate     float64 `json:"dutyRate"`
	Duty         float64 `json:"duty"`
	GST          float64 `json:"gst"`
	AddInfo      string  `json:"addInfo"`
	Description  string  `json:"description"`
	TAndI        float64 `json:"tAndI"`
	WET          float64 `json:"wet"`
	VOTI         float64 `json:"voti"`
	InstrumentNo string  `json:"instrumentNo,omitempty"`
}

// EntryPrintExtraction is the structured record pulled from a customs entry
// print. Field names mirror the layout of the printed form.
type EntryPrintExtraction struct {
	PreparedDateTime string `json:"preparedDateTime"`
	JobNo            string `json:"jobNo"`
	EntryNo          string `json:"entryNo"`
	DestinationPort  string `json:"destinationPort"`

	OwnerName string `json:"ownerName"`
	OwnerCode string `json:"ownerCode"`

	SupplierName string `json:"supplierName"`
	SupplierCode string `json:"supplierCode"`

	Agency  string `json:"agency"`
	Mode    string `json:"mode"`
	ARef    string `json:"aRef"`
	Aircr   string `json:"aircr"`
	LoadPt  string `json:"loadPt"`
	FirstPt string `json:"firstPt"`
	DschPt  string `json:"dschPt"`

	ITerms  string  `json:"iTerms"`
	ORef    string  `json:"oRef"`
	FOB     float64 `json:"fob"`
	FOBAUD  float64 `json:"fobAUD"`
	CIF     float64 `json:"cif"`
	CIFAUD  float64 `json:"cifAUD"`
	GrwtKg  float64 `json:"grwtKg"`
	TAndI   float64 `json:"tAndI"`
	ITot    float64 `json:"itot"`
	ITotAUD float64 `json:"itotAUD"`

	TotalCustomsValueAUD   float64 `json:"totalCustomsValueAUD"`
	Factor                 float64 `json:"factor"`
	ValuationDate          string  `json:"valuationDate"`
	Crncys                 string  `json:"crncys"`
	CalculationDate        string  `json:"calculationDate"`
	CurrencyConversionRate float64 `json:"currencyConversionRate"`

	LineItems []EntryPrintLineItem `json:"lineItems"`

	TotalNumberOfPackages int      `json:"totalNumberOfPackages"`
	BillNos               []string `json:"billNos"`

	TotalDuty       float64 `json:"totalDuty"`
	TotalGST        float64 `json:"totalGST"`
	TotalWET        float64 `json:"totalWET"`
	OtherCharges    float64 `json:"otherCharges"`
	TotalAmtPayable float64 `json:"totalAmtPayable"`
}

// Validate checks the structural essentials of an entry print record.
func (e *EntryPrintExtraction) Validate() error {
	if e.EntryNo == "" {
		return eris.New("entry print: missing entry number")
	}
	if len(e.LineItems) == 0 {
		return eris.New("entry print: no line items")
	}
	for _, li := range e.LineItems {
		if li.LineNo <= 0 {
			return eris.Errorf("entry print: line item with invalid line number %d", li.LineNo)
		}
	}
	return nil
}

// InvoiceLineItem is one product line on a commercial invoice.
type InvoiceLineItem struct {
	ItemNumber        int      `json:"item_number"`
	MaterialNumber    string   `json:"material_number"`
	InvoiceTariffCode string   `json:"invoice_tariff_code"`
	Description       string   `json:"description"`
	Quantity          float64  `json:"quantity"`
	QuantityUnit      string   `json:"quantity_unit"`
	NetWeight         *float64 `json:"net_weight,omitempty"`
	NetWeightUnit     string   `json:"net_weight_unit,omitempty"`
	TotalPrice        float64  `json:"total_price"`
	UnitPrice         float64  `json:"unit_price"`
	CountryOfOrigin   string   `json:"country_of_origin"`
}

// CommercialInvoiceExtraction is the structured record pulled from a
// supplier's commercial invoice.
type CommercialInvoiceExtraction struct {
	InvoiceNumber         string            `json:"invoice_number"`
	InvoiceDate           string            `json:"invoice_date"`
	InvoiceCurrency       string            `json:"invoice_currency"`
	SupplierCompanyName   string            `json:"supplier_company_name"`
	SupplierAddressLine1  string            `json:"supplier_address_line1"`
	BuyerCompanyName      string            `json:"buyer_company_name"`
	BuyerAddressLine1     string            `json:"buyer_address_line1"`
	IncoTerms             string            `json:"inco_terms"`
	InvoiceTotalAmount    float64           `json:"invoice_total_amount"`
	InternationalFreight  *float64          `json:"international_freight,omitempty"`
	InsuranceCharges      *float64          `json:"insurance_charges,omitempty"`
	DestinationCharges    *float64          `json:"destination_charges,omitempty"`
	ImportDuties          *float64          `json:"import_duties,omitempty"`
	InlandTransportation  *float64          `json:"inland_transportation,omitempty"`
	OtherCharges          *float64          `json:"other_charges,omitempty"`
	FOBAmount             *float64          `json:"fob_amount,omitempty"`
	CIFAmount             *float64          `json:"cif_amount,omitempty"`
	TransportAndInsurance *float64          `json:"transport_and_insurance,omitempty"`
	InvoiceItems          []InvoiceLineItem `json:"invoice_items"`
}

// Validate checks the structural essentials of a commercial invoice record.
func (c *CommercialInvoiceExtraction) Validate() error {
	if c.InvoiceNumber == "" {
		return eris.New("commercial invoice: missing invoice number")
	}
	if len(c.InvoiceItems) == 0 {
		return eris.New("commercial invoice: no line items")
	}
	return nil
}

// ExtractionRecord is a tagged variant holding the record for whichever
// document type was extracted. Exactly one payload field is non-nil.
type ExtractionRecord struct {
	Type              DocumentType
	EntryPrint        *EntryPrintExtraction
	CommercialInvoice *CommercialInvoiceExtraction
}

// MarshalJSON emits the inner record directly so the on-disk extraction JSON
// matches the document schema rather than the wrapper.
func (r ExtractionRecord) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case DocTypeEntryPrint:
		return json.Marshal(r.EntryPrint)
	case DocTypeCommercialInvoice:
		return json.Marshal(r.CommercialInvoice)
	default:
		return nil, eris.Errorf("extraction record: unsupported document type %q", r.Type)
	}
}

// Validate dispatches to the inner record's structural check.
func (r *ExtractionRecord) Validate() error {
	switch r.Type {
	case DocTypeEntryPrint:
		if r.EntryPrint == nil {
			return eris.New("extraction record: entry print payload missing")
		}
		return r.EntryPrint.Validate()
	case DocTypeCommercialInvoice:
		if r.CommercialInvoice == nil {
			return eris.New("extraction record: commercial invoice payload missing")
		}
		return r.CommercialInvoice.Validate()
	default:
		return eris.Errorf("extraction record: unsupported document type %q", r.Type)
	}
}
