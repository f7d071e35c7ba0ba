package models

import (
	"time"
)

// Answer types returned by the retrieval pipeline.
const (
	AnswerTypeText              = "text"
	AnswerTypeBookingRequest    = "booking_request"
	AnswerTypeBookingIncomplete = "booking_incomplete"
)

// Sync statuses.
const (
	SyncStatusDone    = "done"
	SyncStatusSkipped = "skipped"
)

// IngestStatusIngested is the status of a successfully ingested document.
const IngestStatusIngested = "ingested"

// DocumentChunk represents one text chunk from a document.
type DocumentChunk struct {
	DocumentID string    `db:"document_id" json:"document_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"`
	Text       string    `db:"chunk_text" json:"chunk_text"`
	Embedding  []float32 `db:"embedding" json:"-"` // pgvector column
}

// SearchResult is one nearest-neighbour hit. Higher score is closer.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	ChunkText  string  `json:"chunk_text"`
	Score      float64 `json:"score"`
}

// DocumentSummary is a document as seen through its indexed chunks.
type DocumentSummary struct {
	DocumentID string `db:"document_id" json:"document_id"`
	ChunkCount int    `db:"chunk_count" json:"chunk_count"`
}

// IngestResult is returned after a document has been (re)indexed.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
}

// SyncLogEntry records the checksum of the last successful ingestion of an external file.
type SyncLogEntry struct {
	ExternalFileID string    `db:"drive_file_id" json:"external_file_id"`
	Filename       string    `db:"filename" json:"filename"`
	Checksum       string    `db:"checksum" json:"checksum"`
	SyncedAt       time.Time `db:"synced_at" json:"synced_at"`
}

// IngestedFile is a folder file that was indexed during a sync pass.
type IngestedFile struct {
	Name       string `json:"name"`
	FileID     string `json:"file_id"`
	ChunkCount int    `json:"chunk_count"`
}

// SkippedFile is a folder file that a sync pass left alone.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FailedFile is a folder file whose ingestion failed; it is retried next pass.
type FailedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// SyncResult summarises one sync pass.
type SyncResult struct {
	Status   string         `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Ingested []IngestedFile `json:"ingested"`
	Skipped  []SkippedFile  `json:"skipped"`
	Failed   []FailedFile   `json:"failed"`
}

// Room is a bookable room. The core only reads rooms.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Location string `db:"location" json:"location"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// BookingParams are the structured fields of a booking request.
type BookingParams struct {
	RoomName  string `json:"room_name"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

// Citation points the user at a chunk that grounded an answer.
type Citation struct {
	DocumentID string  `json:"document_id"`
	Excerpt    string  `json:"excerpt"`
	Score      float64 `json:"score"`
}

// AnswerResult is the response of the retrieval pipeline.
type AnswerResult struct {
	Type      string         `json:"type"`
	Answer    string         `json:"answer"`
	Citations []Citation     `json:"citations"`
	Params    *BookingParams `json:"params,omitempty"`
	Missing   []string       `json:"missing,omitempty"`
}
