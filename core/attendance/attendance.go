// Package attendance models bus boarding records and their summaries.
package attendance

import (
	"math"
	"sort"

	"github.com/trezcool/tripsync/core"
	"github.com/trezcool/tripsync/core/bus"
)

// StatusBoarded is the only status that counts as present.
const StatusBoarded = "Boarded"

type Record struct {
	Name      string         `json:"name"`
	RollNo    string         `json:"roll_no"`
	Route     string         `json:"route,omitempty"`
	Boarding  string         `json:"boarding,omitempty"`
	BusNumber string         `json:"busNumber,omitempty"`
	Date      string         `json:"date"`
	Time      string         `json:"time,omitempty"`
	Status    string         `json:"status"`
	Location  *bus.Location  `json:"location,omitempty"`
	Timestamp core.Timestamp `json:"timestamp"`
}

func (r Record) Present() bool { return r.Status == StatusBoarded }

// Summary is a student's attendance history with its statistics.
type Summary struct {
	TotalDays   int      `json:"total_days"`
	PresentDays int      `json:"present_days"`
	Percentage  float64  `json:"attendance_percentage"`
	History     []Record `json:"history"`
}

func (r *Record) Clone() *Record {
	cp := *r
	cp.Location = r.Location.Clone()
	return &cp
}

func cloneRecords(rs []Record) []Record {
	if rs == nil {
		return nil
	}
	out := make([]Record, len(rs))
	for i := range rs {
		out[i] = *rs[i].Clone()
	}
	return out
}

func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	cp := *s
	cp.History = cloneRecords(s.History)
	return &cp
}

// Period is the date range of a RangeSummary ("all time" / "present" when open).
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RangeSummary is the attendance summary of one student over a date range.
type RangeSummary struct {
	RollNo  string `json:"roll_no"`
	Period  Period `json:"period"`
	Summary struct {
		TotalEntries int      `json:"total_entries"`
		PresentCount int      `json:"present_count"`
		Percentage   float64  `json:"attendance_percentage"`
		DatesPresent []string `json:"dates_present"`
	} `json:"summary"`
	Records []Record `json:"records"`
}

func (rs *RangeSummary) Clone() *RangeSummary {
	if rs == nil {
		return nil
	}
	cp := *rs
	if rs.Summary.DatesPresent != nil {
		cp.Summary.DatesPresent = append([]string{}, rs.Summary.DatesPresent...)
	}
	cp.Records = cloneRecords(rs.Records)
	return &cp
}

// Percentage returns present/total as a percentage rounded to 2 decimals (0 when total is 0).
func Percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}

// Summarize computes the statistics of records, which are kept in the given order.
func Summarize(records []Record) Summary {
	s := Summary{TotalDays: len(records), History: make([]Record, len(records))}
	copy(s.History, records)
	for _, r := range records {
		if r.Present() {
			s.PresentDays++
		}
	}
	s.Percentage = Percentage(s.PresentDays, s.TotalDays)
	return s
}

// SummarizeRange filters records to [from, to] (YYYY-MM-DD, either may be empty) and summarizes them.
// Records and present dates are sorted newest first.
func SummarizeRange(rollNo, from, to string, records []Record) RangeSummary {
	rs := RangeSummary{RollNo: rollNo, Period: Period{From: from, To: to}, Records: make([]Record, 0)}
	if rs.Period.From == "" {
		rs.Period.From = "all time"
	}
	if rs.Period.To == "" {
		rs.Period.To = "present"
	}

	dates := make(map[string]struct{})
	for _, r := range records {
		if (from != "" && r.Date < from) || (to != "" && r.Date > to) {
			continue
		}
		rs.Records = append(rs.Records, r)
		if r.Present() {
			rs.Summary.PresentCount++
			dates[r.Date] = struct{}{}
		}
	}
	sort.SliceStable(rs.Records, func(i, j int) bool { return rs.Records[i].Date > rs.Records[j].Date })

	rs.Summary.TotalEntries = len(rs.Records)
	rs.Summary.Percentage = Percentage(rs.Summary.PresentCount, rs.Summary.TotalEntries)
	rs.Summary.DatesPresent = make([]string, 0, len(dates))
	for d := range dates {
		rs.Summary.DatesPresent = append(rs.Summary.DatesPresent, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(rs.Summary.DatesPresent)))
	return rs
}
