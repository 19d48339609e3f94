package form4

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/model"
)

const sampleForm4 = `<?xml version="1.0" encoding="UTF-8"?>
<ownershipDocument>
	<documentType>4</documentType>
	<reportingOwner>
		<reportingOwnerId>
			<rptOwnerCik>0001234567</rptOwnerCik>
			<rptOwnerName>DOE JANE</rptOwnerName>
		</reportingOwnerId>
	</reportingOwner>
	<nonDerivativeTable>
		<nonDerivativeTransaction>
			<securityTitle><value>Common Stock</value></securityTitle>
			<transactionDate><value>2024-01-10</value></transactionDate>
			<transactionCoding><transactionCode>P</transactionCode></transactionCoding>
			<transactionAmounts>
				<transactionShares><value>100</value></transactionShares>
				<transactionPricePerShare><value>12.50</value></transactionPricePerShare>
			</transactionAmounts>
		</nonDerivativeTransaction>
		<nonDerivativeTransaction>
			<securityTitle><value>Restricted Stock Units</value></securityTitle>
			<transactionDate><value>2024-01-10</value></transactionDate>
			<transactionCoding><transactionCode>A</transactionCode></transactionCoding>
			<transactionAmounts>
				<transactionShares><value>500</value></transactionShares>
				<transactionPricePerShare><value>0</value></transactionPricePerShare>
			</transactionAmounts>
		</nonDerivativeTransaction>
	</nonDerivativeTable>
</ownershipDocument>`

func rawFiling(content string) *model.RawFiling {
	return &model.RawFiling{
		AccessionNumber: "0001-24-000001",
		Ticker:          "AAPL",
		FilingDate:      time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		Content:         []byte(content),
	}
}

func TestParseExtractsTransactions(t *testing.T) {
	result, err := NewParser().Parse(rawFiling(sampleForm4))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Empty(t, result.LineFailures)

	buy := result.Transactions[0]
	assert.Equal(t, "AAPL", buy.Ticker)
	assert.Equal(t, "DOE JANE", buy.ReporterName)
	assert.Equal(t, "0001234567", buy.ReporterCIK)
	assert.Equal(t, model.CodePurchase, buy.Code)
	assert.Equal(t, model.SecurityCommonStock, buy.Security)
	assert.InDelta(t, 100.0, buy.Shares, 1e-9)
	assert.InDelta(t, 12.5, buy.PricePerShare, 1e-9)
	assert.InDelta(t, 1250.0, buy.TotalValue(), 1e-9)
	assert.False(t, buy.Anomalous)

	grant := result.Transactions[1]
	assert.Equal(t, model.CodeGrant, grant.Code)
	assert.Equal(t, model.SecurityRSU, grant.Security)
	assert.Zero(t, grant.PricePerShare) // explicit zero price is valid
}

func TestParseInvalidXML(t *testing.T) {
	_, err := NewParser().Parse(rawFiling("this is not xml at all <"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "0001-24-000001", parseErr.AccessionNumber)
}

func TestParseWrongDocumentType(t *testing.T) {
	doc := `<?xml version="1.0"?>
<ownershipDocument>
	<documentType>3</documentType>
</ownershipDocument>`

	_, err := NewParser().Parse(rawFiling(doc))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "not a Form 4")
}

func TestParseNoTransactions(t *testing.T) {
	// Administrative-only filings legitimately carry no transaction lines.
	doc := `<?xml version="1.0"?>
<ownershipDocument>
	<documentType>4</documentType>
	<reportingOwner>
		<reportingOwnerId>
			<rptOwnerCik>0001234567</rptOwnerCik>
			<rptOwnerName>DOE JANE</rptOwnerName>
		</reportingOwnerId>
	</reportingOwner>
</ownershipDocument>`

	result, err := NewParser().Parse(rawFiling(doc))
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
	assert.Empty(t, result.LineFailures)
}

func TestParsePartialExtraction(t *testing.T) {
	doc := `<?xml version="1.0"?>
<ownershipDocument>
	<documentType>4</documentType>
	<nonDerivativeTable>
		<nonDerivativeTransaction>
			<securityTitle><value>Common Stock</value></securityTitle>
			<transactionDate><value>2024-01-10</value></transactionDate>
			<transactionCoding><transactionCode>S</transactionCode></transactionCoding>
			<transactionAmounts>
				<transactionShares><value>abc</value></transactionShares>
				<transactionPricePerShare><value>10</value></transactionPricePerShare>
			</transactionAmounts>
		</nonDerivativeTransaction>
		<nonDerivativeTransaction>
			<securityTitle><value>Common Stock</value></securityTitle>
			<transactionDate><value>2024-01-10</value></transactionDate>
			<transactionCoding><transactionCode>S</transactionCode></transactionCoding>
			<transactionAmounts>
				<transactionShares><value>50</value></transactionShares>
				<transactionPricePerShare><value>10</value></transactionPricePerShare>
			</transactionAmounts>
		</nonDerivativeTransaction>
	</nonDerivativeTable>
</ownershipDocument>`

	result, err := NewParser().Parse(rawFiling(doc))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	require.Len(t, result.LineFailures, 1)

	assert.Equal(t, 0, result.LineFailures[0].Line)
	assert.Contains(t, result.LineFailures[0].Reason, "non-numeric share count")
	assert.InDelta(t, 50.0, result.Transactions[0].Shares, 1e-9)
}

func TestParseLineFailures(t *testing.T) {
	tests := []struct {
		name   string
		shares string
		price  string
		reason string
	}{
		{"missing shares", "", "10", "missing share count"},
		{"missing price", "100", "", "missing price per share"},
		{"negative shares", "-5", "10", "negative share count"},
		{"negative price", "100", "-1", "negative price per share"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<?xml version="1.0"?>
<ownershipDocument>
	<documentType>4</documentType>
	<nonDerivativeTable>
		<nonDerivativeTransaction>
			<transactionDate><value>2024-01-10</value></transactionDate>
			<transactionCoding><transactionCode>P</transactionCode></transactionCoding>
			<transactionAmounts>
				<transactionShares><value>` + tt.shares + `</value></transactionShares>
				<transactionPricePerShare><value>` + tt.price + `</value></transactionPricePerShare>
			</transactionAmounts>
		</nonDerivativeTransaction>
	</nonDerivativeTable>
</ownershipDocument>`

			result, err := NewParser().Parse(rawFiling(doc))
			require.NoError(t, err)
			assert.Empty(t, result.Transactions)
			require.Len(t, result.LineFailures, 1)
			assert.Contains(t, result.LineFailures[0].Reason, tt.reason)
		})
	}
}

func TestParseFlagsAnomalousDate(t *testing.T) {
	// Transaction dated after the filing date itself.
	doc := `<?xml version="1.0"?>
<ownershipDocument>
	<documentType>4</documentType>
	<nonDerivativeTable>
		<nonDerivativeTransaction>
			<securityTitle><value>Common Stock</value></securityTitle>
			<transactionDate><value>2024-01-20</value></transactionDate>
			<transactionCoding><transactionCode>P</transactionCode></transactionCoding>
			<transactionAmounts>
				<transactionShares><value>10</value></transactionShares>
				<transactionPricePerShare><value>5</value></transactionPricePerShare>
			</transactionAmounts>
		</nonDerivativeTransaction>
	</nonDerivativeTable>
</ownershipDocument>`

	result, err := NewParser().Parse(rawFiling(doc))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)

	txn := result.Transactions[0]
	assert.True(t, txn.Anomalous)
	assert.Equal(t, -8, txn.DaysSinceFiling())
}

func TestParseMissingOwnerDefaults(t *testing.T) {
	doc := `<?xml version="1.0"?>
<ownershipDocument>
	<documentType>4</documentType>
	<nonDerivativeTable>
		<nonDerivativeTransaction>
			<transactionDate><value>2024-01-10</value></transactionDate>
			<transactionCoding><transactionCode>P</transactionCode></transactionCoding>
			<transactionAmounts>
				<transactionShares><value>10</value></transactionShares>
				<transactionPricePerShare><value>5</value></transactionPricePerShare>
			</transactionAmounts>
		</nonDerivativeTransaction>
	</nonDerivativeTable>
</ownershipDocument>`

	result, err := NewParser().Parse(rawFiling(doc))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "Unknown", result.Transactions[0].ReporterName)
	assert.Empty(t, result.Transactions[0].ReporterCIK)
}
