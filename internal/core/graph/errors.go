// Package graph defines domain-specific errors
package graph

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Node errors
	ErrInvalidNodeID = errors.New("invalid node ID")
	ErrDuplicateNode = errors.New("duplicate node ID")
	ErrNodeNotFound  = errors.New("node not found")

	// Edge errors
	ErrInvalidSource      = errors.New("invalid source node")
	ErrInvalidTarget      = errors.New("invalid target node")
	ErrSourceNodeNotFound = errors.New("source node not found")
	ErrTargetNodeNotFound = errors.New("target node not found")
	ErrDuplicateEdge      = errors.New("duplicate edge ID")

	// Flow data errors
	ErrInvalidFlowData = errors.New("flow data is not an editor graph")
)
