// Package archive exports the liquidation log to Parquet files for
// long-term cold storage, the way the otc-gateway reconciler exports its
// nightly reconciliation report.
package archive

import (
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/equitx-labs/xasset/internal/liquidation"
)

// liquidationRow is the flattened Parquet schema for one liquidation
// record. big.Int amounts are stored as decimal strings rather than
// INT64/DOUBLE so no precision is lost converting into and out of the
// columnar format.
type liquidationRow struct {
	ID                          string `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Borrower                    string `parquet:"name=borrower, type=BYTE_ARRAY, convertedtype=UTF8"`
	CollateralLiquidated        string `parquet:"name=collateral_liquidated, type=BYTE_ARRAY, convertedtype=UTF8"`
	PrincipalRepaid             string `parquet:"name=principal_repaid, type=BYTE_ARRAY, convertedtype=UTF8"`
	AccruedInterestRepaid       string `parquet:"name=accrued_interest_repaid, type=BYTE_ARRAY, convertedtype=UTF8"`
	CollateralAppliedToInterest string `parquet:"name=collateral_applied_to_interest, type=BYTE_ARRAY, convertedtype=UTF8"`
	CollateralizationRatioBps  string `parquet:"name=collateralization_ratio_bps, type=BYTE_ARRAY, convertedtype=UTF8"`
	XLMPrice                   string `parquet:"name=xlm_price, type=BYTE_ARRAY, convertedtype=UTF8"`
	XAssetPrice                string `parquet:"name=xasset_price, type=BYTE_ARRAY, convertedtype=UTF8"`
	Closed                     bool   `parquet:"name=closed, type=BOOLEAN"`
	Ledger                     int64  `parquet:"name=ledger, type=INT64"`
	Timestamp                  int64  `parquet:"name=timestamp, type=INT64"`
}

func toRow(r *liquidation.Record) liquidationRow {
	str := func(v interface{ String() string }) string {
		if v == nil {
			return "0"
		}
		return v.String()
	}
	return liquidationRow{
		ID:                          r.ID,
		Borrower:                    r.Borrower,
		CollateralLiquidated:        str(r.CollateralLiquidated),
		PrincipalRepaid:             str(r.PrincipalRepaid),
		AccruedInterestRepaid:       str(r.AccruedInterestRepaid),
		CollateralAppliedToInterest: str(r.CollateralAppliedToInterest),
		CollateralizationRatioBps:   str(r.CollateralizationRatioBps),
		XLMPrice:                    str(r.XLMPrice),
		XAssetPrice:                 str(r.XAssetPrice),
		Closed:                      r.Closed,
		Ledger:                      int64(r.Ledger),
		Timestamp:                   int64(r.Timestamp),
	}
}

// WriteLiquidations writes records to a Snappy-compressed Parquet file at
// path, one row per record.
func WriteLiquidations(path string, records []*liquidation.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create parquet: %w", err)
	}
	defer file.Close()

	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(liquidationRow), 1)
	if err != nil {
		return fmt.Errorf("archive: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range records {
		row := toRow(r)
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("archive: write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("archive: finalize parquet: %w", err)
	}
	return nil
}
