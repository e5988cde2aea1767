package models

// Vocabularies offered by the input form, in display order.
var (
	OpponentTypes     = []string{"京大以外", "京大"}
	PitcherHandedness = []string{"右", "左"}
	RunnerStates      = []string{"なし", "1塁", "得点圏"}
	StrikeCounts      = []int{0, 1, 2}
	PitchCourses      = []string{"内角", "真ん中", "外角"}
	PitchHeights      = []string{"高め", "真ん中", "低め"}
	PitchTypes        = []string{"ストレート", "スライダー", "チェンジアップ", "フォーク", "カットボール", "ツーシーム", "カーブ"}
	HitTypes          = []string{"ゴロ", "フライ", "ライナー"}

	// BatterHandedness values may appear in the second roster column.
	BatterHandedness = []string{"右", "左", "両"}
)

// DefaultSelection returns the form defaults: the first entry of every vocabulary
// and no team or player.
func DefaultSelection() Selection {
	return Selection{
		OpponentType:      OpponentTypes[0],
		PitcherHandedness: PitcherHandedness[0],
		RunnerState:       RunnerStates[0],
		StrikeCount:       StrikeCounts[0],
		PitchCourse:       PitchCourses[0],
		PitchHeight:       PitchHeights[0],
		PitchType:         PitchTypes[0],
		HitType:           HitTypes[0],
	}
}
