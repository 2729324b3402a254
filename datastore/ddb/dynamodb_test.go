/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/suparena/blogstore/datastore"
	"github.com/suparena/blogstore/datastore/ddb"
	"github.com/suparena/blogstore/datastore/mock"
	"github.com/suparena/blogstore/errors"
	"github.com/suparena/blogstore/resilience"
	"github.com/suparena/blogstore/storagemodels"
)

type note struct {
	PartitionKey string
	RowKey       string
	Body         string
	Tags         []string
	Created      time.Time
}

func (n note) GetPartitionKey() string { return n.PartitionKey }
func (n note) GetRowKey() string       { return n.RowKey }

type checkedNote struct {
	PartitionKey string
	RowKey       string
	Body         string
}

func (n *checkedNote) GetPartitionKey() string { return n.PartitionKey }
func (n *checkedNote) GetRowKey() string       { return n.RowKey }
func (n *checkedNote) Validate() error {
	if n.Body == "" {
		return stderrors.New("body is required")
	}
	return nil
}

type untyped struct {
	Name string
}

var _ datastore.TableStore[note] = (*ddb.TableClient[note])(nil)

func fastExecutor(maxFailures uint32) *resilience.Executor {
	return resilience.NewExecutor(
		resilience.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		resilience.BreakerConfig{MaxFailures: maxFailures, ResetTimeout: time.Hour},
		nil,
	)
}

func newNoteClient(t *testing.T, db *mock.DynamoDB) *ddb.TableClient[note] {
	t.Helper()
	client, err := ddb.NewTableClient[note](context.Background(), db, "notes", fastExecutor(5), ddb.Config{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return client
}

func sampleNote(pk, rk string) note {
	return note{
		PartitionKey: pk,
		RowKey:       rk,
		Body:         "body of " + rk,
		Tags:         []string{"go", "storage"},
		Created:      time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
	}
}

func TestNewTableClientCreatesTable(t *testing.T) {
	db := mock.NewDynamoDB()
	newNoteClient(t, db)
	assert.Equal(t, 1, db.Calls("CreateTable"))

	existing := mock.NewDynamoDB().WithTable("notes")
	newNoteClient(t, existing)
	assert.Equal(t, 0, existing.Calls("CreateTable"))
}

func TestNewTableClientTypeMismatch(t *testing.T) {
	db := mock.NewDynamoDB()
	_, err := ddb.NewTableClient[untyped](context.Background(), db, "things", nil, ddb.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, 0, db.TotalCalls())
}

func TestNewTableClientDescribeFailure(t *testing.T) {
	db := mock.NewDynamoDB().FailAlways("DescribeTable", stderrors.New("access denied"))
	_, err := ddb.NewTableClient[note](context.Background(), db, "notes", fastExecutor(5), ddb.Config{})
	assert.Error(t, err)
	assert.Equal(t, 0, db.Calls("CreateTable"))
}

func TestTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)

	n := sampleNote("ada", "001")
	require.NoError(t, client.AddEntity(ctx, n))

	got, err := client.GetEntity(ctx, "ada", "001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n, *got)

	require.NoError(t, client.DeleteEntity(ctx, "ada", "001"))
	got, err = client.GetEntity(ctx, "ada", "001")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is a no-op.
	assert.NoError(t, client.DeleteEntity(ctx, "ada", "001"))
}

func TestAddEntityConflict(t *testing.T) {
	ctx := context.Background()
	client := newNoteClient(t, mock.NewDynamoDB())

	require.NoError(t, client.AddEntity(ctx, sampleNote("ada", "001")))

	dup := sampleNote("ada", "001")
	dup.Body = "changed"
	err := client.AddEntity(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyExists(err))
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))

	got, err := client.GetEntity(ctx, "ada", "001")
	require.NoError(t, err)
	assert.Equal(t, "body of 001", got.Body)
}

func TestUpdateEntity(t *testing.T) {
	ctx := context.Background()
	client := newNoteClient(t, mock.NewDynamoDB())

	err := client.UpdateEntity(ctx, sampleNote("ada", "missing"))
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, client.AddEntity(ctx, sampleNote("ada", "001")))
	updated := sampleNote("ada", "001")
	updated.Body = "second draft"
	require.NoError(t, client.UpdateEntity(ctx, updated))

	got, err := client.GetEntity(ctx, "ada", "001")
	require.NoError(t, err)
	assert.Equal(t, "second draft", got.Body)
}

func TestKeyValidation(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	db.Reset()

	assert.True(t, errors.IsValidationError(client.AddEntity(ctx, sampleNote("", "001"))))
	assert.True(t, errors.IsValidationError(client.AddEntity(ctx, sampleNote("ada", ""))))
	_, err := client.GetEntity(ctx, "ada", "")
	assert.True(t, errors.IsValidationError(err))
	assert.True(t, errors.IsValidationError(client.DeleteEntity(ctx, "", "001")))
	assert.Equal(t, 0, db.TotalCalls())
}

func TestValidatorHook(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client, err := ddb.NewTableClient[checkedNote](ctx, db, "checked", fastExecutor(5), ddb.Config{})
	require.NoError(t, err)

	err = client.AddEntity(ctx, checkedNote{PartitionKey: "a", RowKey: "1"})
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 0, db.Calls("PutItem"))

	require.NoError(t, client.AddEntity(ctx, checkedNote{PartitionKey: "a", RowKey: "1", Body: "ok"}))
}

func TestTransientFailuresAreRetried(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	require.NoError(t, client.AddEntity(ctx, sampleNote("ada", "001")))

	db.FailNext("GetItem", mock.StatusError(http.StatusServiceUnavailable), &types.ProvisionedThroughputExceededException{})
	got, err := client.GetEntity(ctx, "ada", "001")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, 3, db.Calls("GetItem"))
}

func TestNotFoundStatusIsEmptyResult(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)

	db.FailNext("GetItem", mock.StatusError(http.StatusNotFound))
	got, err := client.GetEntity(ctx, "ada", "001")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestBreakerOpensOnPersistentFailure(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client, err := ddb.NewTableClient[note](ctx, db, "notes", fastExecutor(2), ddb.Config{})
	require.NoError(t, err)

	db.FailAlways("GetItem", mock.StatusError(http.StatusInternalServerError))
	for i := 0; i < 2; i++ {
		_, err := client.GetEntity(ctx, "ada", "001")
		assert.True(t, errors.IsRetryExhausted(err))
	}
	calls := db.Calls("GetItem")
	assert.Equal(t, 6, calls)

	_, err = client.GetEntity(ctx, "ada", "001")
	assert.True(t, errors.IsCircuitOpen(err))
	assert.Equal(t, calls, db.Calls("GetItem"))

	// Other operations on the same table have their own breaker.
	assert.NoError(t, client.AddEntity(ctx, sampleNote("ada", "001")))
}

func TestGetAllWithFilter(t *testing.T) {
	ctx := context.Background()
	client := newNoteClient(t, mock.NewDynamoDB())

	for i := 0; i < 7; i++ {
		pk := "ada"
		if i%2 == 1 {
			pk = "bob"
		}
		require.NoError(t, client.AddEntity(ctx, sampleNote(pk, fmt.Sprintf("%03d", i))))
	}

	all, err := client.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	filter, err := storagemodels.EqualsFilter(ddb.PartitionKeyAttribute, "bob")
	require.NoError(t, err)
	bobs, err := client.GetAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, bobs, 3)
	for _, n := range bobs {
		assert.Equal(t, "bob", n.PartitionKey)
	}
}

func TestGetAllPropagatesScanFailure(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	require.NoError(t, client.AddEntity(ctx, sampleNote("ada", "001")))

	db.FailAlways("Scan", stderrors.New("access denied"))
	_, err := client.GetAll(ctx, nil)
	assert.EqualError(t, err, "access denied")
}

func TestGetPagedResults(t *testing.T) {
	ctx := context.Background()
	client := newNoteClient(t, mock.NewDynamoDB())
	for i := 0; i < 5; i++ {
		require.NoError(t, client.AddEntity(ctx, sampleNote("ada", fmt.Sprintf("%03d", i))))
	}

	page, err := client.GetPagedResults(ctx, 2, "", nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "000", page.Items[0].RowKey)
	assert.True(t, page.HasMore())

	page, err = client.GetPagedResults(ctx, 2, page.ContinuationToken, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"002", "003"}, rowKeys(page.Items))

	page, err = client.GetPagedResults(ctx, 2, page.ContinuationToken, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"004"}, rowKeys(page.Items))
	assert.False(t, page.HasMore())
}

func TestGetPagedResultsFillsFilteredPages(t *testing.T) {
	ctx := context.Background()
	client := newNoteClient(t, mock.NewDynamoDB())
	for i := 0; i < 9; i++ {
		n := sampleNote("ada", fmt.Sprintf("%03d", i))
		if i%3 == 0 {
			n.Body = "match"
		}
		require.NoError(t, client.AddEntity(ctx, n))
	}

	filter, err := storagemodels.EqualsFilter("Body", "match")
	require.NoError(t, err)

	page, err := client.GetPagedResults(ctx, 2, "", filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"000", "003"}, rowKeys(page.Items))

	page, err = client.GetPagedResults(ctx, 2, page.ContinuationToken, filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"006"}, rowKeys(page.Items))
	assert.False(t, page.HasMore())
}

func TestGetPagedResultsMalformedToken(t *testing.T) {
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	db.Reset()

	for _, token := range []string{"not base64!", "bm90IGpzb24", "e30"} {
		_, err := client.GetPagedResults(context.Background(), 5, token, nil)
		assert.True(t, errors.IsValidationError(err), "token %q", token)
	}
	assert.Equal(t, 0, db.Calls("Scan"))
}

func TestGetPagedResultsNoTokenWhenPageEndsTable(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	for i := 0; i < 4; i++ {
		require.NoError(t, client.AddEntity(ctx, sampleNote("ada", fmt.Sprintf("%03d", i))))
	}

	page, err := client.GetPagedResults(ctx, 2, "", nil)
	require.NoError(t, err)
	assert.True(t, page.HasMore())

	page, err = client.GetPagedResults(ctx, 2, page.ContinuationToken, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"002", "003"}, rowKeys(page.Items))
	assert.False(t, page.HasMore())

	t.Run("FilteredTail", func(t *testing.T) {
		for i := 4; i < 8; i++ {
			n := sampleNote("ada", fmt.Sprintf("%03d", i))
			n.Body = "skip"
			require.NoError(t, client.AddEntity(ctx, n))
		}
		filter, err := storagemodels.EqualsFilter("Body", "body of 001")
		require.NoError(t, err)

		page, err := client.GetPagedResults(ctx, 1, "", filter)
		require.NoError(t, err)
		assert.Equal(t, []string{"001"}, rowKeys(page.Items))
		assert.False(t, page.HasMore())
	})
}

func TestQueryPartition(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	for _, k := range []string{"a/2", "b/1", "a/1", "c/7", "a/3", "b/2"} {
		require.NoError(t, client.AddEntity(ctx, sampleNote(k[:1], k[2:])))
	}
	db.Reset()

	notes, err := client.QueryPartition(ctx, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, rowKeys(notes))

	filter, err := storagemodels.EqualsFilter("Body", "body of 2")
	require.NoError(t, err)
	notes, err = client.QueryPartition(ctx, "b", filter)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "b", notes[0].PartitionKey)
	assert.Equal(t, "2", notes[0].RowKey)

	notes, err = client.QueryPartition(ctx, "z", nil)
	require.NoError(t, err)
	assert.Empty(t, notes)

	assert.Equal(t, 0, db.Calls("Scan"))
	assert.Equal(t, 3, db.Calls("Query"))
}

func TestQueryPartitionValidation(t *testing.T) {
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	db.Reset()

	_, err := client.QueryPartition(context.Background(), "", nil)
	assert.True(t, errors.IsValidationError(err))

	reserved := &storagemodels.Filter{
		Expression: "#partition = :x",
		Names:      map[string]string{"#partition": "Body"},
		Values:     map[string]types.AttributeValue{":x": &types.AttributeValueMemberS{Value: "x"}},
	}
	_, err = client.GetPartitionPage(context.Background(), "a", 5, "", reserved)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 0, db.TotalCalls())
}

func TestGetPartitionPage(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	for i := 0; i < 5; i++ {
		require.NoError(t, client.AddEntity(ctx, sampleNote("a", fmt.Sprintf("%03d", i))))
		require.NoError(t, client.AddEntity(ctx, sampleNote("b", fmt.Sprintf("%03d", i))))
	}
	db.Reset()

	var got []string
	token := ""
	pages := 0
	for {
		page, err := client.GetPartitionPage(ctx, "b", 2, token, nil)
		require.NoError(t, err)
		pages++
		for _, n := range page.Items {
			assert.Equal(t, "b", n.PartitionKey)
		}
		got = append(got, rowKeys(page.Items)...)
		if !page.HasMore() {
			break
		}
		token = page.ContinuationToken
	}
	assert.Equal(t, []string{"000", "001", "002", "003", "004"}, got)
	assert.Equal(t, 3, pages)
	assert.Equal(t, 0, db.Calls("Scan"))
}

func TestGetPartitionPageRetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)
	require.NoError(t, client.AddEntity(ctx, sampleNote("a", "001")))

	db.FailNext("Query", mock.StatusError(http.StatusServiceUnavailable))
	page, err := client.GetPartitionPage(ctx, "a", 5, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"001"}, rowKeys(page.Items))
}

func TestDecodeFailureIsSerializationError(t *testing.T) {
	ctx := context.Background()
	db := mock.NewDynamoDB()
	client := newNoteClient(t, db)

	_, err := db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String("notes"),
		Item: map[string]types.AttributeValue{
			"PartitionKey": &types.AttributeValueMemberS{Value: "ada"},
			"RowKey":       &types.AttributeValueMemberS{Value: "bad"},
			"Body": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"nested": &types.AttributeValueMemberS{Value: "x"},
			}},
		},
	})
	require.NoError(t, err)
	db.Reset()

	_, err = client.GetEntity(ctx, "ada", "bad")
	assert.True(t, errors.IsSerialization(err))
	assert.Equal(t, 1, db.Calls("GetItem"), "serialization errors are not retried")
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	client := newNoteClient(t, mock.NewDynamoDB())
	for i := 0; i < 5; i++ {
		require.NoError(t, client.AddEntity(ctx, sampleNote("ada", fmt.Sprintf("%03d", i))))
	}

	var got []string
	var pages []int
	for res := range client.Stream(ctx, nil, storagemodels.WithStreamPageSize(2), storagemodels.WithBufferSize(0)) {
		require.NoError(t, res.Error)
		assert.Equal(t, int64(len(got)), res.Meta.Index)
		got = append(got, res.Item.RowKey)
		pages = append(pages, res.Meta.PageNumber)
	}
	assert.Equal(t, []string{"000", "001", "002", "003", "004"}, got)
	assert.Equal(t, []int{1, 1, 2, 2, 3}, pages)
}

func TestStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := newNoteClient(t, mock.NewDynamoDB())
	for i := 0; i < 10; i++ {
		require.NoError(t, client.AddEntity(ctx, sampleNote("ada", fmt.Sprintf("%03d", i))))
	}

	ch := client.Stream(ctx, nil, storagemodels.WithStreamPageSize(1), storagemodels.WithBufferSize(0))
	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after cancel")
	}

	_, err := client.GetAll(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// Following continuation tokens yields disjoint pages whose concatenation is
// exactly the full result set.
func TestPagingReconstructsFullSet(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		client, err := ddb.NewTableClient[note](ctx, mock.NewDynamoDB(), "notes", fastExecutor(5), ddb.Config{})
		if err != nil {
			rt.Fatalf("NewTableClient: %v", err)
		}

		keys := rapid.SliceOfDistinct(
			rapid.StringMatching(`[a-c]/[0-9]{1,3}`),
			func(s string) string { return s },
		).Draw(rt, "keys")
		for _, k := range keys {
			n := sampleNote(k[:1], k[2:])
			if err := client.AddEntity(ctx, n); err != nil {
				rt.Fatalf("AddEntity(%s): %v", k, err)
			}
		}
		pageSize := rapid.Int32Range(1, 8).Draw(rt, "pageSize")

		var filter *storagemodels.Filter
		if rapid.Bool().Draw(rt, "filtered") {
			filter, err = storagemodels.EqualsFilter(ddb.PartitionKeyAttribute, rapid.SampledFrom([]string{"a", "b", "c"}).Draw(rt, "partition"))
			if err != nil {
				rt.Fatalf("EqualsFilter: %v", err)
			}
		}

		all, err := client.GetAll(ctx, filter)
		if err != nil {
			rt.Fatalf("GetAll: %v", err)
		}

		var paged []note
		seen := make(map[string]bool)
		token := ""
		for i := 0; ; i++ {
			if i > len(keys)+1 {
				rt.Fatalf("paging did not terminate")
			}
			page, err := client.GetPagedResults(ctx, pageSize, token, filter)
			if err != nil {
				rt.Fatalf("GetPagedResults: %v", err)
			}
			if int32(len(page.Items)) > pageSize {
				rt.Fatalf("page has %d items, limit %d", len(page.Items), pageSize)
			}
			for _, n := range page.Items {
				k := n.PartitionKey + "/" + n.RowKey
				if seen[k] {
					rt.Fatalf("record %s returned twice", k)
				}
				seen[k] = true
			}
			paged = append(paged, page.Items...)
			if !page.HasMore() {
				break
			}
			token = page.ContinuationToken
		}

		if len(paged) != len(all) {
			rt.Fatalf("paged %d records, GetAll returned %d", len(paged), len(all))
		}
		for i := range all {
			if all[i].PartitionKey != paged[i].PartitionKey || all[i].RowKey != paged[i].RowKey {
				rt.Fatalf("order differs at %d: %v vs %v", i, all[i], paged[i])
			}
		}
	})
}

func TestPartitionPagingMatchesQuery(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		client, err := ddb.NewTableClient[note](ctx, mock.NewDynamoDB(), "notes", fastExecutor(5), ddb.Config{})
		if err != nil {
			rt.Fatalf("NewTableClient: %v", err)
		}

		keys := rapid.SliceOfDistinct(
			rapid.StringMatching(`[a-c]/[0-9]{1,3}`),
			func(s string) string { return s },
		).Draw(rt, "keys")
		for _, k := range keys {
			if err := client.AddEntity(ctx, sampleNote(k[:1], k[2:])); err != nil {
				rt.Fatalf("AddEntity(%s): %v", k, err)
			}
		}
		partition := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(rt, "partition")
		pageSize := rapid.Int32Range(1, 8).Draw(rt, "pageSize")

		want, err := client.QueryPartition(ctx, partition, nil)
		if err != nil {
			rt.Fatalf("QueryPartition: %v", err)
		}

		var got []note
		token := ""
		for i := 0; ; i++ {
			if i > len(keys)+1 {
				rt.Fatalf("paging did not terminate")
			}
			page, err := client.GetPartitionPage(ctx, partition, pageSize, token, nil)
			if err != nil {
				rt.Fatalf("GetPartitionPage: %v", err)
			}
			if page.HasMore() && int32(len(page.Items)) != pageSize {
				rt.Fatalf("page with a token has %d items, want %d", len(page.Items), pageSize)
			}
			got = append(got, page.Items...)
			if !page.HasMore() {
				break
			}
			token = page.ContinuationToken
		}

		if len(got) != len(want) {
			rt.Fatalf("paged %d records, QueryPartition returned %d", len(got), len(want))
		}
		for i := range want {
			if want[i].PartitionKey != partition || got[i].RowKey != want[i].RowKey {
				rt.Fatalf("record %d: got %v, want %v", i, got[i], want[i])
			}
		}
	})
}

func rowKeys(notes []note) []string {
	keys := make([]string, len(notes))
	for i, n := range notes {
		keys[i] = n.RowKey
	}
	return keys
}
