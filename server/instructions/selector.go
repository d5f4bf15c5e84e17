// Package instructions picks the probe instruction handed back to clients on
// heartbeat. Selection is uniform over a static list configured at startup;
// whether the selected instruction is attached to the response at all is a
// separate per-request Bernoulli draw.
package instructions

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultSendProbability = 0.9

// Instruction tells a client what to probe next.
type Instruction struct {
	ID              string `json:"instruction_id" mapstructure:"-"`
	Host            string `json:"host" mapstructure:"host"`
	Protocol        string `json:"protocol" mapstructure:"protocol"`
	DurationSeconds int    `json:"duration_seconds" mapstructure:"duration_seconds"`
	IntervalMS      int    `json:"interval_ms" mapstructure:"interval_ms"`
}

type Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	SendProbability float64       `mapstructure:"send_probability"`
	Instructions    []Instruction `mapstructure:"instruction"`
}

// DefaultInstructions is used when instruction pushing is enabled but no list
// is configured.
var DefaultInstructions = []Instruction{
	{Host: "8.8.8.8", Protocol: "icmp", DurationSeconds: 60, IntervalMS: 1000},
}

type Selector struct {
	instructions    []Instruction
	sendProbability float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector assigns each instruction a stable ID and seeds the random
// source. The list must be non-empty and the probability within [0, 1].
func NewSelector(list []Instruction, sendProbability float64) (*Selector, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("instruction list is empty")
	}
	if sendProbability < 0 || sendProbability > 1 {
		return nil, fmt.Errorf("invalid send probability: %v", sendProbability)
	}

	instructions := make([]Instruction, len(list))
	copy(instructions, list)
	for i := range instructions {
		if instructions[i].ID == "" {
			instructions[i].ID = uuid.New().String()
		}
	}

	return &Selector{
		instructions:    instructions,
		sendProbability: sendProbability,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func NewSelectorFromConfig(cfg Config) (*Selector, error) {
	list := cfg.Instructions
	if len(list) == 0 {
		list = DefaultInstructions
	}
	probability := cfg.SendProbability
	if probability == 0 {
		probability = DefaultSendProbability
	}
	return NewSelector(list, probability)
}

// Select returns a uniform-random member of the configured list.
func (s *Selector) Select() Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instructions[s.rnd.Intn(len(s.instructions))]
}

// ShouldSend draws once per heartbeat request and decides whether the
// selected instruction is attached to the outgoing response.
func (s *Selector) ShouldSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < s.sendProbability
}

// Instructions returns a copy of the configured list.
func (s *Selector) Instructions() []Instruction {
	out := make([]Instruction, len(s.instructions))
	copy(out, s.instructions)
	return out
}
