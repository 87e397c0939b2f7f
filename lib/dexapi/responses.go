package dexapi

import (
	"github.com/steinarvk/whizdex/lib/dexerror"
	"github.com/steinarvk/whizdex/lib/recquery"
)

type PageInfo struct {
	Page      int `json:"page"`
	PageSize  int `json:"page_size"`
	PageCount int `json:"page_count"`
}

type QueryResponse struct {
	Collection  string            `json:"collection"`
	Total       int               `json:"total"`
	PageInfo    PageInfo          `json:"page_info"`
	Records     []recquery.Record `json:"records"`
	ResultHash  string            `json:"result_hash"`
	GeneratedAt Timestamp         `json:"generated_at"`
}

type FacetResponse struct {
	Collection string                `json:"collection"`
	Field      string                `json:"field"`
	Values     []recquery.ValueCount `json:"values"`
}

type CollectionSummary struct {
	Name        string   `json:"name"`
	NumRecords  int      `json:"num_records"`
	Searchable  []string `json:"searchable"`
	Filterable  []string `json:"filterable"`
	DefaultSort string   `json:"default_sort,omitempty"`
}

type ErrorResponse struct {
	Error dexerror.PublicErrorDetail `json:"error"`
}
