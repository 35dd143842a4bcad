package assets

// Progress counts assets of one type by status.
type Progress struct {
	Total      int `json:"total"`
	Complete   int `json:"complete"`
	Failed     int `json:"failed"`
	Generating int `json:"generating"`
	Pending    int `json:"pending"`
}

// Settled reports whether every asset reached a terminal status.
func (p Progress) Settled() bool {
	return p.Complete+p.Failed == p.Total
}

// Percent returns the share of terminal assets, 0-100.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Complete+p.Failed) * 100 / float64(p.Total)
}

// Overview holds per-type progress.
type Overview struct {
	Image Progress `json:"image"`
	Audio Progress `json:"audio"`
}

// For returns the progress of typ.
func (o Overview) For(typ Type) Progress {
	if typ == TypeAudio {
		return o.Audio
	}
	return o.Image
}

// ComputeProgress derives counts from a snapshot. It is recomputed on every
// read and never stored.
func ComputeProgress(snapshot []Asset) Overview {
	var o Overview
	for _, a := range snapshot {
		p := &o.Image
		if a.Type == TypeAudio {
			p = &o.Audio
		}
		p.Total++
		switch a.Status {
		case StatusComplete:
			p.Complete++
		case StatusFailed:
			p.Failed++
		case StatusGenerating:
			p.Generating++
		default:
			p.Pending++
		}
	}
	return o
}
