package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// --- Mocks ---

type mockPoints struct {
	upsertReq  *pb.UpsertPoints
	upsertErr  error
	searchReq  *pb.SearchPoints
	searchResp *pb.SearchResponse
	searchErr  error
	countResp  *pb.CountResponse
	countErr   error
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upsertReq = in
	return &pb.PointsOperationResponse{}, m.upsertErr
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.searchReq = in
	return m.searchResp, m.searchErr
}

func (m *mockPoints) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	return m.countResp, m.countErr
}

type mockCollections struct {
	listResp  *pb.ListCollectionsResponse
	listErr   error
	created   *pb.CreateCollection
	createErr error
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}

func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = in
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}

// --- Tests ---

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "assessments"}},
		},
	}
	vs := NewWithClients(&mockPoints{}, cols, "assessments")
	if err := vs.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created != nil {
		t.Fatal("should not create an existing collection")
	}
}

func TestEnsureCollection_Creates(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{},
	}
	vs := NewWithClients(&mockPoints{}, cols, "assessments")
	if err := vs.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created == nil {
		t.Fatal("expected Create call")
	}
	if got := cols.created.GetVectorsConfig().GetParams().GetSize(); got != 768 {
		t.Fatalf("expected 768 dims, got %d", got)
	}
}

func TestEnsureCollection_ListError(t *testing.T) {
	cols := &mockCollections{listErr: errors.New("boom")}
	vs := NewWithClients(&mockPoints{}, cols, "assessments")
	if err := vs.EnsureCollection(context.Background(), 768); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_BuildsPayload(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "assessments")

	recs := []VectorRecord{{
		ID:        "11111111-2222-3333-4444-555555555555",
		Embedding: []float32{0.1, 0.2},
		Payload: map[string]any{
			"record_key": "https://example.com/java",
			"name":       "Java 8 (New)",
		},
	}}
	if err := vs.Upsert(context.Background(), recs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if len(pts.upsertReq.GetPoints()) != 1 {
		t.Fatalf("expected 1 point, got %d", len(pts.upsertReq.GetPoints()))
	}
	payload := pts.upsertReq.GetPoints()[0].GetPayload()
	if payload["record_key"].GetStringValue() != "https://example.com/java" {
		t.Fatalf("record_key missing from payload: %v", payload)
	}
}

func TestUpsert_Empty(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "assessments")
	if err := vs.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts.upsertReq != nil {
		t.Fatal("should not call Upsert with no records")
	}
}

func TestSearch_MapsPayload(t *testing.T) {
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{
				{
					Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "id-1"}},
					Score: 0.92,
					Payload: map[string]*pb.Value{
						"record_key": {Kind: &pb.Value_StringValue{StringValue: "https://example.com/a"}},
						"name":       {Kind: &pb.Value_StringValue{StringValue: "A"}},
						"type":       {Kind: &pb.Value_StringValue{StringValue: "Individual Test Solutions"}},
					},
				},
				{
					Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "id-2"}},
					Score: 0.75,
				},
			},
		},
	}
	vs := NewWithClients(pts, &mockCollections{}, "assessments")

	results, err := vs.Search(context.Background(), []float32{0.5, 0.5}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RecordKey != "https://example.com/a" || results[0].Name != "A" {
		t.Fatalf("payload not mapped: %+v", results[0])
	}
	if results[0].Meta["type"] != "Individual Test Solutions" {
		t.Fatalf("extra payload should land in Meta: %+v", results[0].Meta)
	}
	if results[0].Score < results[1].Score {
		t.Fatal("results should arrive closest first")
	}
	if pts.searchReq.GetLimit() != 2 {
		t.Fatalf("expected limit 2, got %d", pts.searchReq.GetLimit())
	}
}

func TestSearch_Error(t *testing.T) {
	pts := &mockPoints{searchErr: errors.New("unavailable")}
	vs := NewWithClients(pts, &mockCollections{}, "assessments")
	if _, err := vs.Search(context.Background(), []float32{1}, 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestCount(t *testing.T) {
	pts := &mockPoints{countResp: &pb.CountResponse{Result: &pb.CountResult{Count: 42}}}
	vs := NewWithClients(pts, &mockCollections{}, "assessments")
	n, err := vs.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
}
