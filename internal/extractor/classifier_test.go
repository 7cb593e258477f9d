package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgermatch/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		want     models.DocumentType
		wantHit  bool
	}{
		{
			name:    "bank statement",
			content: "Statement Period 01/01/2024 - 01/31/2024\nBeginning Balance $4,000\nDeposits $1,200\nWithdrawals $800",
			want:    models.DocTypeBankStatement,
			wantHit: true,
		},
		{
			name:    "credit card statement",
			content: "Your Credit Card Statement\nMinimum Payment: $35\nNew Balance: $1,204.88\nPayment Due: 02/15/2024",
			want:    models.DocTypeCreditCardStatement,
			wantHit: true,
		},
		{
			name:    "invoice",
			content: "INVOICE\nInvoice Number: 8841\nBill To: Joe's Diner\nAmount Due: $500.00\nDue Date: Net 30",
			want:    models.DocTypeInvoice,
			wantHit: true,
		},
		{
			name:    "sales report",
			content: "Daily Sales Report\nGross Sales: $2,400.00\nNet Sales: $2,180.00",
			want:    models.DocTypeSalesReport,
			wantHit: true,
		},
		{
			name:    "check",
			content: "Pay to the Order of Sysco Foods\nFour hundred twenty dollars\nMemo: produce",
			want:    models.DocTypeCheckImage,
			wantHit: true,
		},
		{
			name:    "single keyword is not enough",
			content: "we sent an invoice yesterday",
			wantHit: false,
		},
		{
			name:    "garbage",
			content: "\x00\x01\x02 jumbled bytes",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify([]byte(tt.content))
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
