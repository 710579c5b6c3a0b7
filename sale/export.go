package sale

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"
)

// ExportLen is the number of columns of the enriched export.
const ExportLen = RecordLen + 2

const (
	yes = "yes"
	no  = "no"
)

// ExportHeader names the enriched export columns.
var ExportHeader = []string{
	"date", "buyer_email", "buyer_username", "amount", "kind",
	"seller_name", "seller_id", "seller_email", "token", "sale_id",
	"card_name", "card_prefix", "card_suffix", "resolved", "decoding",
}

// ExportRow is one sale of the enriched export.
type ExportRow struct {
	Record   Record
	Resolved bool
	Decoding string
}

// ExportRows renders every sale, in time order.
func (l *Ledger) ExportRows() []ExportRow {
	rows := make([]ExportRow, 0, len(l.sales))
	for _, a := range l.sales {
		rows = append(rows, ExportRow{
			Record:   a.Record,
			Resolved: a.IsResolved(),
			Decoding: a.Decoding(),
		})
	}
	return rows
}

// Fields renders the row as ExportLen CSV fields.
func (r ExportRow) Fields() []string {
	rec := r.Record
	resolved := no
	if r.Resolved {
		resolved = yes
	}
	return []string{
		rec.When.Format(time.RFC3339),
		orNA(rec.BuyerEmail),
		orNA(rec.BuyerUsername),
		FormatCents(rec.Paid),
		rec.KindLabel,
		orNA(rec.SellerName),
		orNA(rec.SellerID),
		orNA(rec.SellerEmail),
		rec.Token,
		rec.SaleID,
		orNA(rec.CardName),
		orNA(rec.CardPrefix),
		orNA(rec.CardSuffix),
		resolved,
		r.Decoding,
	}
}

// WriteExport writes the header and one line per row.
func WriteExport(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Fields()); err != nil {
			return fmt.Errorf("write export row %s: %w", row.Record.SaleID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadExport parses an enriched export back into rows. fee restores the
// channel of online sales. Bad rows are reported like ParseCSV does.
func ReadExport(r io.Reader, fee Fee) ([]ExportRow, []error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, []error{&ParseError{Line: 1, Err: fmt.Errorf("header: %w", err)}}
	}

	var rows []ExportRow
	var errs []error
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				errs = append(errs, &ParseError{Line: csvErr.StartLine, Err: err})
				continue
			}
			errs = append(errs, err)
			break
		}

		line, _ := reader.FieldPos(0)
		if len(fields) != ExportLen {
			err := fmt.Errorf("expected %d columns, got %d: %w", ExportLen, len(fields), ErrColumnCount)
			errs = append(errs, &ParseError{Line: line, Err: err})
			continue
		}
		rec, err := parseRecord(fields[:RecordLen], fee)
		if err != nil {
			errs = append(errs, &ParseError{Line: line, Err: err})
			continue
		}
		rows = append(rows, ExportRow{
			Record:   rec,
			Resolved: fields[RecordLen] == yes,
			Decoding: fields[RecordLen+1],
		})
	}
	return rows, errs
}
