package control

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/badu/kvm"
)

func TestCrossedEntryDeadbandRight(t *testing.T) {
	// Entering from the right: deadband is 5% of width = 96px at 1920.
	assert.False(t, crossedEntryDeadband(kvm.EdgeRight, kvm.NewPoint(50, 0), 1920, 1080))
	assert.True(t, crossedEntryDeadband(kvm.EdgeRight, kvm.NewPoint(96, 0), 1920, 1080))
}

func TestCrossedEntryDeadbandLeft(t *testing.T) {
	assert.False(t, crossedEntryDeadband(kvm.EdgeLeft, kvm.NewPoint(1870, 0), 1920, 1080))
	assert.True(t, crossedEntryDeadband(kvm.EdgeLeft, kvm.NewPoint(1823, 0), 1920, 1080))
}

func TestExitedOppositeEdgeRightPeerExitsViaLeft(t *testing.T) {
	// A peer occupying our Right edge is entered at remote.X==0; its
	// opposite is Left, so exiting means remote.X < 0.
	assert.False(t, exitedOppositeEdge(kvm.EdgeRight, kvm.NewPoint(0, 500), 1920, 1080))
	assert.True(t, exitedOppositeEdge(kvm.EdgeRight, kvm.NewPoint(-1, 500), 1920, 1080))
}

func TestReleaseNormalizedUsesYForHorizontalPeers(t *testing.T) {
	// Left/Right peers are "horizontal" neighbors in our Edge.Horizontal
	// vocabulary being false; release position is measured along Y.
	norm := releaseNormalized(kvm.EdgeRight, kvm.NewPoint(-5, 270), 1920, 1080)
	assert.InDelta(t, 0.25, norm, 0.01)
}

func TestReleaseNormalizedUsesXForTopBottomPeers(t *testing.T) {
	norm := releaseNormalized(kvm.EdgeBottom, kvm.NewPoint(480, -5), 1920, 1080)
	assert.InDelta(t, 0.25, norm, 0.01)
}
