package config

import (
	"fmt"
	"strings"
)

// Aligner selects the read alignment tool.
type Aligner int

const (
	AlignerHISAT2 Aligner = iota
	AlignerSTAR
)

func (a Aligner) String() string {
	switch a {
	case AlignerHISAT2:
		return "HISAT2"
	case AlignerSTAR:
		return "STAR"
	}
	return fmt.Sprintf("Aligner(%d)", int(a))
}

// ParseAligner accepts HISAT2 or STAR, case-insensitively.
func ParseAligner(s string) (Aligner, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HISAT2":
		return AlignerHISAT2, nil
	case "STAR":
		return AlignerSTAR, nil
	}
	return 0, fmt.Errorf("unknown aligner %q (want HISAT2 or STAR)", s)
}

// Kingdom selects which organism-specific stages run.
type Kingdom int

const (
	KingdomProkarya Kingdom = iota
	KingdomEukarya
	KingdomBoth
)

func (k Kingdom) String() string {
	switch k {
	case KingdomProkarya:
		return "prokarya"
	case KingdomEukarya:
		return "eukarya"
	case KingdomBoth:
		return "both"
	}
	return fmt.Sprintf("Kingdom(%d)", int(k))
}

// ParseKingdom accepts prokarya, eukarya or both.
func ParseKingdom(s string) (Kingdom, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prokarya":
		return KingdomProkarya, nil
	case "eukarya":
		return KingdomEukarya, nil
	case "both":
		return KingdomBoth, nil
	}
	return 0, fmt.Errorf("unknown kingdom %q (want prokarya, eukarya or both)", s)
}

// Prokaryotic reports whether prokaryote stages run.
func (k Kingdom) Prokaryotic() bool { return k == KingdomProkarya || k == KingdomBoth }

// Eukaryotic reports whether eukaryote stages run.
func (k Kingdom) Eukaryotic() bool { return k == KingdomEukarya || k == KingdomBoth }

// SchedulerMode selects in-process or centrally coordinated execution.
type SchedulerMode int

const (
	SchedulerLocal SchedulerMode = iota
	SchedulerDistributed
)

func (m SchedulerMode) String() string {
	switch m {
	case SchedulerLocal:
		return "local"
	case SchedulerDistributed:
		return "distributed"
	}
	return fmt.Sprintf("SchedulerMode(%d)", int(m))
}

// ParseSchedulerMode accepts local or distributed. Empty means local.
func ParseSchedulerMode(s string) (SchedulerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return SchedulerLocal, nil
	case "distributed":
		return SchedulerDistributed, nil
	}
	return 0, fmt.Errorf("unknown scheduler mode %q (want local or distributed)", s)
}
