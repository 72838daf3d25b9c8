// ABOUTME: Atlas hardware parameter name templates
// ABOUTME: Zero-indexed Category+Attribute names plus non-indexed commands

package atlas

import "fmt"

// Indexed parameters follow <Category><Attribute>_<zeroBasedIndex>.
func ZoneGainParam(zone int) string     { return fmt.Sprintf("ZoneGain_%d", zone) }
func ZoneMuteParam(zone int) string     { return fmt.Sprintf("ZoneMute_%d", zone) }
func ZoneSourceParam(zone int) string   { return fmt.Sprintf("ZoneSource_%d", zone) }
func ZoneNameParam(zone int) string     { return fmt.Sprintf("ZoneName_%d", zone) }
func SourceGainParam(source int) string { return fmt.Sprintf("SourceGain_%d", source) }
func SourceMuteParam(source int) string { return fmt.Sprintf("SourceMute_%d", source) }
func SourceNameParam(source int) string { return fmt.Sprintf("SourceName_%d", source) }
func GroupActiveParam(group int) string { return fmt.Sprintf("GroupActive_%d", group) }

// Non-indexed commands.
const (
	ParamRecallScene = "RecallScene"
	ParamPlayMessage = "PlayMessage"
)

// NoSource is the sentinel routed to a zone to clear its source.
const NoSource = -1
