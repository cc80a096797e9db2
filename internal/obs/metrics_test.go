package obs

import "testing"

func TestMockMetrics_RecordsCountsAndHists(t *testing.T) {
	m := NewMockMetrics()
	m.IncCounter("ingest_documents_total", map[string]string{"modality": "pdf"})
	m.IncCounter("ingest_documents_total", map[string]string{"modality": "pdf"})
	m.ObserveHistogram("retrieve_search_ms", 12, map[string]string{"mode": "hybrid"})
	m.ObserveHistogram("retrieve_search_ms", 34, map[string]string{"mode": "hybrid"})
	if m.Counters["ingest_documents_total"] != 2 {
		t.Fatalf("expected 2 documents, got %d", m.Counters["ingest_documents_total"])
	}
	if len(m.Hists["retrieve_search_ms"]) != 2 {
		t.Fatalf("expected 2 histogram records, got %d", len(m.Hists["retrieve_search_ms"]))
	}
}
