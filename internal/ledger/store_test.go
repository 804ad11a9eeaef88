package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundtracker/internal/core"
)

type fakeBackend struct {
	records []Record
	missing bool
	loadErr error
	saveErr error
	saved   [][]core.Transaction
}

func (f *fakeBackend) Load(context.Context) ([]Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.missing {
		return nil, ErrNoStorage
	}
	return f.records, nil
}

func (f *fakeBackend) Save(_ context.Context, txs []core.Transaction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, cloneTxs(txs))
	f.missing = false
	f.records = EncodeAll(txs)
	return nil
}

func draft(desc string, units int64) core.Draft {
	return core.Draft{
		Date:        core.NewDate(2024, 4, 2),
		Description: desc,
		Amount:      core.Units(units),
		Category:    "Gear and Expenses",
		Method:      "Bank Transfer",
	}
}

func loaded(t *testing.T, b *fakeBackend) *Store {
	t.Helper()
	s := NewStore(b, core.DefaultCatalog())
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	return s
}

func TestLoadInitializesMissingStorage(t *testing.T) {
	b := &fakeBackend{missing: true}
	s := NewStore(b, core.DefaultCatalog())
	res, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Initialized)
	assert.Empty(t, s.Snapshot())
	require.Len(t, b.saved, 1)
	assert.Empty(t, b.saved[0])
}

func TestLoadDropsMalformedRowsAndRenumbers(t *testing.T) {
	b := &fakeBackend{records: []Record{
		{Seq: "7", Date: "2024-01-05", Description: "late", Category: "PSO Fuel Card", Amount: "10", Method: "Cheque"},
		{Seq: "2", Date: "not a date", Description: "bad date", Category: "PSO Fuel Card", Amount: "1"},
		{Seq: "3", Date: "2024-01-03", Description: "first", Category: "PSO Fuel Card", Amount: "20.5"},
		{Seq: "x", Date: "2024-01-03", Description: "bad seq", Category: "PSO Fuel Card", Amount: "1"},
		{Seq: "4", Date: "2024-01-04", Description: "negative", Category: "PSO Fuel Card", Amount: "-3"},
		{Seq: "5", Date: "2024-01-04", Description: "garbage", Category: "PSO Fuel Card", Amount: "lots"},
		{Seq: "6", Date: "2024-01-06 00:00:00", Description: "legacy", Category: "Retired", Amount: "0"},
	}}
	s := NewStore(b, core.DefaultCatalog())
	res, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Dropped)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, res, s.LastLoad())

	got := s.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, seqs(got))
	assert.Equal(t, []string{"first", "legacy", "late"}, descriptions(got))
	assert.Equal(t, int64(2050), got[0].Amount.Cents)
	assert.Equal(t, "Retired", got[1].Category, "unknown categories are kept on load")
}

func TestLoadReadFailure(t *testing.T) {
	s := NewStore(&fakeBackend{loadErr: errors.New("permission denied")}, core.DefaultCatalog())
	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, core.ErrStorageRead)
}

func TestAppendAssignsNextSeq(t *testing.T) {
	b := &fakeBackend{missing: true}
	s := loaded(t, b)
	ctx := context.Background()

	first, err := s.Append(ctx, draft("  tent  ", 100))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, "tent", first.Description)

	second, err := s.Append(ctx, draft("stove", 50))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, []string{"tent", "stove"}, descriptions(b.saved[len(b.saved)-1]))
}

func TestAppendRejectsInvalidWithoutChange(t *testing.T) {
	b := &fakeBackend{missing: true}
	s := loaded(t, b)
	v := s.Version()

	bad := draft("refund", 0)
	bad.Amount = core.Money{Cents: -500}
	_, err := s.Append(context.Background(), bad)
	require.ErrorIs(t, err, core.ErrValidation)

	unknown := draft("x", 1)
	unknown.Category = "Retired"
	_, err = s.Append(context.Background(), unknown)
	require.ErrorIs(t, err, core.ErrUnknownCategory)

	assert.Empty(t, s.Snapshot())
	assert.Equal(t, v, s.Version())
	assert.Len(t, b.saved, 1)
}

func TestFailedSaveKeepsState(t *testing.T) {
	b := &fakeBackend{missing: true}
	s := loaded(t, b)
	ctx := context.Background()
	_, err := s.Append(ctx, draft("a", 1))
	require.NoError(t, err)
	v := s.Version()

	b.saveErr = errors.New("disk full")
	_, err = s.Append(ctx, draft("b", 2))
	require.ErrorIs(t, err, core.ErrStorageWrite)
	_, err = s.Delete(ctx, 1)
	require.ErrorIs(t, err, core.ErrStorageWrite)
	_, err = s.Update(ctx, 1, draft("c", 3))
	require.ErrorIs(t, err, core.ErrStorageWrite)

	assert.Equal(t, []string{"a"}, descriptions(s.Snapshot()))
	assert.Equal(t, v, s.Version())
}

func TestUpdate(t *testing.T) {
	s := loaded(t, &fakeBackend{missing: true})
	ctx := context.Background()
	for _, d := range []string{"a", "b"} {
		_, err := s.Append(ctx, draft(d, 1))
		require.NoError(t, err)
	}

	edit := draft("b2", 9)
	edit.Method = "Cheque"
	edit.Notes = "reissued"
	txs, err := s.Update(ctx, 2, edit)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, 2, txs[1].Seq)
	assert.Equal(t, "b2", txs[1].Description)
	assert.Equal(t, core.Units(9), txs[1].Amount)
	assert.Equal(t, "reissued", txs[1].Notes)

	_, err = s.Update(ctx, 3, edit)
	require.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Update(ctx, 1, core.Draft{})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestDeleteRenumbersDensely(t *testing.T) {
	s := loaded(t, &fakeBackend{missing: true})
	ctx := context.Background()
	for _, d := range []string{"a", "b", "c", "d"} {
		_, err := s.Append(ctx, draft(d, 1))
		require.NoError(t, err)
	}

	txs, err := s.Delete(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seqs(txs))
	assert.Equal(t, []string{"a", "c", "d"}, descriptions(txs))

	_, err = s.Delete(ctx, 0)
	require.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Delete(ctx, 4)
	require.ErrorIs(t, err, core.ErrNotFound)

	got, err := s.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "d", got.Description)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := loaded(t, &fakeBackend{missing: true})
	_, err := s.Append(context.Background(), draft("a", 1))
	require.NoError(t, err)
	snap := s.Snapshot()
	snap[0].Description = "changed"
	assert.Equal(t, "a", s.Snapshot()[0].Description)
}

func TestRecordsFromTable(t *testing.T) {
	in := "Date,Description,Amount,Category,Method\n" +
		"2024-02-01 00:00:00,Banner,1500,Marketing/Advertisement,Cheque\n" +
		",,,,\n" +
		"2024-02-03,Fuel,250.75,PSO Fuel Card,Fuel Card Update\n"
	recs, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].Seq)
	assert.Equal(t, "3", recs[1].Seq)

	tx, err := DecodeRow(recs[1])
	require.NoError(t, err)
	assert.Equal(t, int64(25075), tx.Amount.Cents)
	assert.Equal(t, "Fuel Card Update", tx.Method)

	_, err = ReadCSV(strings.NewReader("Foo,Bar\n1,2\n"))
	require.ErrorContains(t, err, "Amount, Category, Date, Description")
}

func TestWriteCSVRoundTripsThroughLoad(t *testing.T) {
	txs := []core.Transaction{{Seq: 1, Draft: draft("tent, large", 120)}}
	txs[0].Notes = `said "urgent"`

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, txs))
	assert.True(t, strings.HasPrefix(sb.String(), strings.Join(Header, ",")+"\n"))

	recs, err := ReadCSV(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	got, err := DecodeRow(recs[0])
	require.NoError(t, err)
	assert.Equal(t, txs[0], got)
}

func seqs(txs []core.Transaction) []int {
	out := make([]int, len(txs))
	for i, tx := range txs {
		out[i] = tx.Seq
	}
	return out
}

func descriptions(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Description
	}
	return out
}

func TestReadCSVKeepsGoingAfterParseError(t *testing.T) {
	in := strings.Join(Header, ",") + "\n" +
		"1,2024-03-01,ok,Gear and Expenses,10,Cheque,\n" +
		"2,2024-03-02,bad \"quote,Gear and Expenses,10,Cheque,\n" +
		"3,2024-03-03,fine,Gear and Expenses,10,Cheque,\n"
	recs, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.NoError(t, recs[0].Err)
	assert.Error(t, recs[1].Err)
	assert.Equal(t, "3", recs[2].Seq)

	_, err = DecodeRow(recs[1])
	assert.ErrorContains(t, err, "csv line 3")
}
