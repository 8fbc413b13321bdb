package utils

import (
	"time"
)

// Identity matching constants
const (
	// FuzzyMatchThreshold is the minimum similarity score for a fuzzy email match
	FuzzyMatchThreshold = 0.90
)

// Flag lifecycle constants
const (
	// FlagTTL is the default window after which a non-persistent flag is pruned
	// absent re-triggering (14 days)
	FlagTTL = 14 * 24 * time.Hour
)

// Known upstream source systems
const (
	SourceCapitan   = "capitan"
	SourceStripe    = "stripe"
	SourceSquare    = "square"
	SourceMailchimp = "mailchimp"
	SourceCommerce  = "commerce"
	SourcePipeline  = "pipeline"
)
