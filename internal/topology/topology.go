package topology

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	ErrInvalidTopology     = errors.New("invalid memory topology")
	ErrInvalidElementWidth = errors.New("invalid element byte width")
)

// Level is one addressable level of the LPDDR hierarchy, ordered from the
// smallest unit (a column access) to the whole system.
type Level int

const (
	Column Level = iota
	Row
	Bank
	BankGroup
	Rank
	Channel
	Package
	System
)

var levelNames = [...]string{
	Column:    "column",
	Row:       "row",
	Bank:      "bank",
	BankGroup: "bank-group",
	Rank:      "rank",
	Channel:   "channel",
	Package:   "package",
	System:    "system",
}

func (l Level) String() string {
	if l < Column || l > System {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Levels lists every level bottom-up.
func Levels() []Level {
	return []Level{Column, Row, Bank, BankGroup, Rank, Channel, Package, System}
}

// Topology describes the fan-out at every level of the memory system.
// A zero value is not usable; start from Default and override fields.
//
//	| channel | rank | bank-group | bank | row index | column index | access granularity |
//	|    3    |  1   |     2      |  2   |    17     |      6       |         5          |
type Topology struct {
	Packages      int `yaml:"packages" json:"packages"`
	Channels      int `yaml:"channels" json:"channels"`
	Ranks         int `yaml:"ranks" json:"ranks"`
	BankGroups    int `yaml:"bank_groups" json:"bank_groups"`
	Banks         int `yaml:"banks" json:"banks"`
	Rows          int `yaml:"rows" json:"rows"`
	Columns       int `yaml:"columns" json:"columns"`
	PrefetchBytes int `yaml:"prefetch_bytes" json:"prefetch_bytes"`
}

// Default returns the LPDDR-PIM configuration the simulator is built for.
func Default() Topology {
	return Topology{
		Packages:      6,
		Channels:      8,
		Ranks:         1,
		BankGroups:    4,
		Banks:         4,
		Rows:          1 << 17,
		Columns:       1 << 6,
		PrefetchBytes: 32,
	}
}

// Validate reports a non-positive fan-out, or fan-outs whose product does not
// fit a 64-bit address.
func (t Topology) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"packages", t.Packages},
		{"channels", t.Channels},
		{"ranks", t.Ranks},
		{"bank_groups", t.BankGroups},
		{"banks", t.Banks},
		{"rows", t.Rows},
		{"columns", t.Columns},
		{"prefetch_bytes", t.PrefetchBytes},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidTopology, f.name, f.value)
		}
	}
	g := uint64(1)
	for lv := Column; lv <= System; lv++ {
		hi, lo := bits.Mul64(g, uint64(t.FanOut(lv)))
		if hi != 0 {
			return fmt.Errorf("%w: %s address space overflows 64 bits", ErrInvalidTopology, lv)
		}
		g = lo
	}
	return nil
}

// FanOut returns how many units of the level below make up one unit of l.
// For Column it is the prefetch size in bytes.
func (t Topology) FanOut(l Level) int {
	switch l {
	case Column:
		return t.PrefetchBytes
	case Row:
		return t.Columns
	case Bank:
		return t.Rows
	case BankGroup:
		return t.Banks
	case Rank:
		return t.BankGroups
	case Channel:
		return t.Ranks
	case Package:
		return t.Channels
	case System:
		return t.Packages
	default:
		return 0
	}
}

// Granularity returns the number of bytes spanned by one unit of l.
func (t Topology) Granularity(l Level) uint64 {
	if l < Column || l > System {
		return 0
	}
	g := uint64(1)
	for lv := Column; lv <= l; lv++ {
		g *= uint64(t.FanOut(lv))
	}
	return g
}

// AddressSpace is the byte size of the whole system; every valid address is below it.
func (t Topology) AddressSpace() uint64 {
	return t.Granularity(System)
}

// Parallelism holds the per-run compute parallelism derived from a topology
// and the element width of the weights.
type Parallelism struct {
	Packages   int `json:"packages"`
	Channels   int `json:"channels"`
	Ranks      int `json:"ranks"`
	BankGroups int `json:"bank_groups"`
	Banks      int `json:"banks"`
	MACWidth   int `json:"mac_width"`
}

// Parallelism derives the MAC width (elements per prefetch) for elementBytes.
func (t Topology) Parallelism(elementBytes int) (Parallelism, error) {
	if err := t.Validate(); err != nil {
		return Parallelism{}, err
	}
	if elementBytes <= 0 {
		return Parallelism{}, fmt.Errorf("%w: %d", ErrInvalidElementWidth, elementBytes)
	}
	mac := t.PrefetchBytes / elementBytes
	if mac == 0 {
		return Parallelism{}, fmt.Errorf("%w: %d bytes exceeds the %d byte prefetch",
			ErrInvalidElementWidth, elementBytes, t.PrefetchBytes)
	}
	return Parallelism{
		Packages:   t.Packages,
		Channels:   t.Channels,
		Ranks:      t.Ranks,
		BankGroups: t.BankGroups,
		Banks:      t.Banks,
		MACWidth:   mac,
	}, nil
}

// BankParallelism is the number of banks a channel can drive at once.
func (p Parallelism) BankParallelism() int {
	return p.Ranks * p.BankGroups * p.Banks
}
