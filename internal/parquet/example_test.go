package parquet_test

import (
	"bytes"
	"fmt"
	"io"

	"github.com/huangsam/cpkwatch/internal/parquet"
	"github.com/huangsam/cpkwatch/schema"
	pq "github.com/parquet-go/parquet-go"
)

func ExampleWriteRows() {
	results := schema.EnrichTestRisks([]schema.TestRiskResult{
		{TestName: "iddq", Station: "ict", Day: "2025-03-14", Assessment: schema.RiskAssessment{Score: 90, Level: schema.HighRisk}},
		{TestName: "vbat", Station: "fct", Day: "2025-03-14", Assessment: schema.RiskAssessment{Score: 36, Level: schema.LowRisk}},
	})

	var buf bytes.Buffer
	if err := parquet.WriteRows(&buf, parquet.ConvertRiskResults(results)); err != nil {
		fmt.Println(err)
		return
	}

	reader := pq.NewGenericReader[parquet.RiskReportRow](bytes.NewReader(buf.Bytes()))
	defer func() { _ = reader.Close() }()
	rows := make([]parquet.RiskReportRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		fmt.Println(err)
		return
	}
	for _, row := range rows[:n] {
		fmt.Println(row.Rank, row.TestName, row.Level)
	}
	// Output:
	// 1 iddq high
	// 2 vbat low
}
