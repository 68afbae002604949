package service

import (
	"encoding/xml"
	"fmt"

	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
)

// Minimal FatturaPA-shaped document. The gateway only needs well-formed XML
// carrying the transmission header and the body lines; full schema coverage
// belongs to the rendering layer outside this engine.
type fatturaDocument struct {
	XMLName        xml.Name      `xml:"FatturaElettronica"`
	TransmissionID string        `xml:"DatiTrasmissione>ProgressivoInvio"`
	DocumentType   string        `xml:"FatturaElettronicaBody>DatiGenerali>TipoDocumento"`
	Number         string        `xml:"FatturaElettronicaBody>DatiGenerali>Numero"`
	Date           string        `xml:"FatturaElettronicaBody>DatiGenerali>Data"`
	Customer       string        `xml:"CessionarioCommittente>Denominazione"`
	TaxCode        string        `xml:"CessionarioCommittente>CodiceFiscale,omitempty"`
	Lines          []fatturaLine `xml:"FatturaElettronicaBody>DatiBeniServizi>DettaglioLinee"`
}

type fatturaLine struct {
	Description string  `xml:"Descrizione"`
	Quantity    int64   `xml:"Quantita"`
	Amount      int64   `xml:"PrezzoTotale"`
	VATRate     float64 `xml:"AliquotaIVA"`
}

func buildFatturaXML(transmissionID string, sale invoicedomain.SaleRef) ([]byte, error) {
	doc := fatturaDocument{
		TransmissionID: transmissionID,
		DocumentType:   "TD01",
		Number:         sale.DocumentNumber,
		Date:           sale.DocumentDate,
		Customer:       sale.CustomerName,
		TaxCode:        sale.CustomerTaxCode,
	}
	for _, line := range sale.Lines {
		doc.Lines = append(doc.Lines, fatturaLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			Amount:      line.Amount,
			VATRate:     line.VATRate,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// creditNoteXML derives a TD04 document from the original invoice payload.
func creditNoteXML(transmissionID string, original *invoicedomain.ElectronicInvoice) []byte {
	number, _ := original.Snapshot["document_number"].(string)
	date, _ := original.Snapshot["document_date"].(string)
	customer, _ := original.Snapshot["customer_name"].(string)

	doc := fatturaDocument{
		TransmissionID: transmissionID,
		DocumentType:   "TD04",
		Number:         fmt.Sprintf("NC-%s", number),
		Date:           date,
		Customer:       customer,
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil
	}
	return append([]byte(xml.Header), out...)
}
