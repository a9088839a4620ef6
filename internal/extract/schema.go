package extract

// Schema hints enumerate the exact JSON keys the model must emit. Keeping
// them as prompt text (rather than reflection) makes the contract explicit
// and reviewable next to the record types in internal/model.

const entryPrintSchemaHint = `Return a JSON object with exactly these fields:
{
  "preparedDateTime": string, "jobNo": string, "entryNo": string, "destinationPort": string,
  "ownerName": string, "ownerCode": string,
  "supplierName": string, "supplierCode": string,
  "agency": string, "mode": string, "aRef": string, "aircr": string,
  "loadPt": string, "firstPt": string, "dschPt": string,
  "iTerms": string, "oRef": string,
  "fob": number, "fobAUD": number, "cif": number, "cifAUD": number,
  "grwtKg": number, "tAndI": number, "itot": number, "itotAUD": number,
  "totalCustomsValueAUD": number, "factor": number, "valuationDate": string,
  "crncys": string, "calculationDate": string, "currencyConversionRate": number,
  "lineItems": [
    {
      "lineNo": number, "tariff": string, "stat": string,
      "quantity": number, "quantityUnit": string,
      "trt": string, "originPref": string,
      "invoicePrice": number, "customsValue": number,
      "dutyRate": number, "duty": number, "gst": number,
      "addInfo": string, "description": string,
      "tAndI": number, "wet": number, "voti": number,
      "instrumentNo": string or omitted
    }
  ],
  "totalNumberOfPackages": number, "billNos": [string],
  "totalDuty": number, "totalGST": number, "totalWET": number,
  "otherCharges": number, "totalAmtPayable": number
}`

const invoiceSchemaHint = `Return a JSON object with exactly these fields:
{
  "invoice_number": string, "invoice_date": string, "invoice_currency": string,
  "supplier_company_name": string, "supplier_address_line1": string,
  "buyer_company_name": string, "buyer_address_line1": string,
  "inco_terms": string, "invoice_total_amount": number,
  "international_freight": number or null, "insurance_charges": number or null,
  "destination_charges": number or null, "import_duties": number or null,
  "inland_transportation": number or null, "other_charges": number or null,
  "fob_amount": number or null, "cif_amount": number or null,
  "transport_and_insurance": number or null,
  "invoice_items": [
    {
      "item_number": number, "material_number": string,
      "invoice_tariff_code": string, "description": string,
      "quantity": number, "quantity_unit": string,
      "net_weight": number or null, "net_weight_unit": string or omitted,
      "total_price": number, "unit_price": number,
      "country_of_origin": string
    }
  ]
}`
