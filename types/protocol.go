package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProtocol is returned when a wire name does not match any supported protocol family
var ErrUnknownProtocol = errors.New("unknown protocol")

// Protocol identifies the wire grammar of a message
type Protocol string

const (
	// ProtocolRPC JSON-RPC style request/response
	ProtocolRPC Protocol = "rpc"
	// ProtocolGraphQL graph query request
	ProtocolGraphQL Protocol = "graphql"
	// ProtocolAIS vessel position beacon
	ProtocolAIS Protocol = "ais"
	// ProtocolEPIRB distress/safety beacon
	ProtocolEPIRB Protocol = "epirb"
	// ProtocolLink16 classified tactical message
	ProtocolLink16 Protocol = "link16"
)

// AllProtocols returns every supported protocol family.
// Adding a family here without a parser and a destination fails the parser and router tests.
func AllProtocols() []Protocol {
	return []Protocol{
		ProtocolRPC,
		ProtocolGraphQL,
		ProtocolAIS,
		ProtocolEPIRB,
		ProtocolLink16,
	}
}

// ParseProtocol maps a wire name onto a supported protocol family
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(strings.ToLower(strings.TrimSpace(s)))
	if !p.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
	}
	return p, nil
}

// Known returns true if p is one of the supported families
func (p Protocol) Known() bool {
	for _, k := range AllProtocols() {
		if p == k {
			return true
		}
	}
	return false
}

func (p Protocol) String() string {
	return string(p)
}

// Direction of a message relative to the adapter
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// ClassificationLevel is the ordered sensitivity marking of tactical messages
type ClassificationLevel int

const (
	Unclassified ClassificationLevel = iota
	Confidential
	Secret
	TopSecret
)

var classificationNames = map[ClassificationLevel]string{
	Unclassified: "UNCLASSIFIED",
	Confidential: "CONFIDENTIAL",
	Secret:       "SECRET",
	TopSecret:    "TOP_SECRET",
}

func (c ClassificationLevel) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ClassificationLevel(%d)", int(c))
}

// ClassificationLevels returns the levels from lowest to highest
func ClassificationLevels() []ClassificationLevel {
	return []ClassificationLevel{Unclassified, Confidential, Secret, TopSecret}
}

// ParseClassification looks up a level by its marking. Matching is exact.
func ParseClassification(s string) (ClassificationLevel, bool) {
	for level, name := range classificationNames {
		if name == s {
			return level, true
		}
	}
	return Unclassified, false
}
