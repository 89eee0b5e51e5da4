package pipeline

// Stats is the per-run counter bag. Each patient is processed with its own
// Stats value, which the driver merges into the run total under a lock, so
// individual rules never need atomic increments.
type Stats struct {
	ContactsSeen             int `json:"contacts_seen"`
	ContactsFailed           int `json:"contacts_failed"`
	HospitalCodesResolved    int `json:"hospital_codes_resolved"`
	EndTimesNormalized       int `json:"end_times_normalized"`
	ProcedureTimesNormalized int `json:"procedure_times_normalized"`
	EndTimesExtended         int `json:"end_times_extended"`
	DuplicatesMerged         int `json:"duplicates_merged"`
	OverlapsMerged           int `json:"overlaps_merged"`
	OverlapsShrunk           int `json:"overlaps_shrunk"`
	OverlapsSplit            int `json:"overlaps_split"`
	OverlapsTrimmed          int `json:"overlaps_trimmed"`
	CollisionsResolved       int `json:"collisions_resolved"`
	ContradictionsDropped    int `json:"contradictions_dropped"`
	GapsBridged              int `json:"gaps_bridged"`
	AdmissionsCreated        int `json:"admissions_created"`
	PatientsProcessed        int `json:"patients_processed"`
	PatientsAborted          int `json:"patients_aborted"`
}

// Merge adds another Stats value into this one.
func (s *Stats) Merge(o *Stats) {
	s.ContactsSeen += o.ContactsSeen
	s.ContactsFailed += o.ContactsFailed
	s.HospitalCodesResolved += o.HospitalCodesResolved
	s.EndTimesNormalized += o.EndTimesNormalized
	s.ProcedureTimesNormalized += o.ProcedureTimesNormalized
	s.EndTimesExtended += o.EndTimesExtended
	s.DuplicatesMerged += o.DuplicatesMerged
	s.OverlapsMerged += o.OverlapsMerged
	s.OverlapsShrunk += o.OverlapsShrunk
	s.OverlapsSplit += o.OverlapsSplit
	s.OverlapsTrimmed += o.OverlapsTrimmed
	s.CollisionsResolved += o.CollisionsResolved
	s.ContradictionsDropped += o.ContradictionsDropped
	s.GapsBridged += o.GapsBridged
	s.AdmissionsCreated += o.AdmissionsCreated
	s.PatientsProcessed += o.PatientsProcessed
	s.PatientsAborted += o.PatientsAborted
}
