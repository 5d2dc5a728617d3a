package services

import (
	"errors"
	"fmt"
	"time"

	"prediction-league-system/models"
)

// ErrInvalidStage means a match carries a stage ID outside 1-6. This is a
// data integrity failure: scoring must abort instead of guessing a phase.
var ErrInvalidStage = errors.New("invalid stage")

// Scoring weights. Most are spelled inline where the rules read better that
// way; the ones reused across branches live here.
const (
	pointsOutrightWin  = 3 // favourite's side won in 90/120 minutes
	pointsDraw         = 1
	pointsChampionship = 3 // favourite won the final
	maxTimeOfGoalAward = 5
	regularDuration    = 90
)

// MatchContext bundles the fixture data the engine needs: stage, kickoff
// time and the resolved country on each side (nil while a knockout slot is
// still "winner of …").
type MatchContext struct {
	MatchID       int
	StageID       int
	Time          time.Time
	HomeCountryID *int
	AwayCountryID *int
}

// PhaseOf maps a stage ID onto a favourite phase: group stage, early
// knockout, late knockout. Unknown stages are an error, never a default.
func PhaseOf(stageID int) (int, error) {
	switch stageID {
	case models.StageGroup:
		return models.PhaseGroup, nil
	case models.StageRoundOf16, models.StageQuarterFinal:
		return models.PhaseKnockout, nil
	case models.StageSemiFinal, models.StageFinal, models.StageThirdPlace:
		return models.PhaseFinal, nil
	default:
		return 0, fmt.Errorf("%w: stage %d", ErrInvalidStage, stageID)
	}
}

func winner(home, away int) int {
	switch {
	case home > away:
		return 1
	case home < away:
		return -1
	default:
		return 0
	}
}

// favouritePoints scores a single favourite against one finished match.
// A favourite updated at or after kickoff scores nothing (you can't pick a
// winner you already watched win), as does one from the wrong phase or one
// whose country isn't playing.
func favouritePoints(fav models.Favourite, phase int, match MatchContext, outcome models.MatchOutcome) int {
	if !fav.UpdatedAt.Before(match.Time) {
		return 0
	}
	if fav.Phase != phase {
		return 0
	}
	if fav.CountryID == nil {
		return 0
	}

	var sideScore, otherScore int
	switch {
	case match.HomeCountryID != nil && *fav.CountryID == *match.HomeCountryID:
		sideScore, otherScore = outcome.HomeScore, outcome.AwayScore
	case match.AwayCountryID != nil && *fav.CountryID == *match.AwayCountryID:
		sideScore, otherScore = outcome.AwayScore, outcome.HomeScore
	default:
		return 0
	}

	points := sideScore
	switch {
	case sideScore > otherScore:
		points += pointsOutrightWin
	case sideScore == otherScore:
		points += pointsDraw
	}

	// Picking the champion pays extra.
	if match.StageID == models.StageFinal && sideScore > otherScore {
		points += pointsChampionship
	}

	return points
}

// predictionPoints scores the result prediction and the time-of-first-goal
// side bet. Returns the two components separately; both are zero for
// predictions made at or after kickoff.
func predictionPoints(pred models.MatchPrediction, phase int, match MatchContext, outcome models.MatchOutcome) (result, timeOfGoal int) {
	if !pred.UpdatedAt.Before(match.Time) {
		return 0, 0
	}

	predictedWinner := winner(pred.HomeScore, pred.AwayScore)
	actualWinner := winner(outcome.HomeScore, outcome.AwayScore)

	if predictedWinner == actualWinner {
		result += 2
	}
	if pred.HomeScore == outcome.HomeScore {
		result++
	}
	if pred.AwayScore == outcome.AwayScore {
		result++
	}
	// 4 is only reachable when all three held: the scoreline was exact.
	if result == 4 {
		result += 3
	}

	if phase >= models.PhaseKnockout {
		result += knockoutPoints(pred, predictedWinner, actualWinner, outcome)
	}

	if predictedWinner == actualWinner {
		diff := outcome.TimeOfFirstGoal - pred.TimeOfFirstGoal
		if diff < 0 {
			diff = -diff
		}
		if diff < maxTimeOfGoalAward {
			timeOfGoal = maxTimeOfGoalAward - diff
		}
	}

	return result, timeOfGoal
}

// knockoutPoints covers the knockout-only refinements: shoot-out scoring for
// drawn matches and the 90-vs-120-minutes duration bet for decided ones.
// Missing penalty or duration data (either side) simply contributes nothing.
func knockoutPoints(pred models.MatchPrediction, predictedWinner, actualWinner int, outcome models.MatchOutcome) int {
	if actualWinner == 0 {
		// Drawn after regulation/extra time, so it went to penalties.
		if predictedWinner != 0 {
			// Didn't see the draw coming, but backed the side that
			// eventually took the shoot-out.
			if outcome.HomePenalties != nil && outcome.AwayPenalties != nil &&
				predictedWinner == winner(*outcome.HomePenalties, *outcome.AwayPenalties) {
				return 1
			}
			return 0
		}

		points := 1 // called the shoot-out
		if outcome.HomePenalties == nil || outcome.AwayPenalties == nil {
			// Shoot-out result never recorded; nothing to compare against.
			return points
		}
		actualShootoutWinner := winner(*outcome.HomePenalties, *outcome.AwayPenalties)
		if pred.HomePenalties == nil || pred.AwayPenalties == nil {
			return points
		}
		if winner(*pred.HomePenalties, *pred.AwayPenalties) != actualShootoutWinner {
			return points
		}
		points++ // right shoot-out winner
		exact := 0
		if *pred.HomePenalties == *outcome.HomePenalties {
			points++
			exact++
		}
		if *pred.AwayPenalties == *outcome.AwayPenalties {
			points++
			exact++
		}
		if exact == 2 {
			points++ // full penalty scoreline
		}
		return points
	}

	if predictedWinner == 0 {
		return 0
	}

	// Decided match, decided prediction: the duration bet. Early data entry
	// left duration blank on some rows, so a missing value reads as 90.
	predDuration := regularDuration
	if pred.Duration != nil {
		predDuration = *pred.Duration
	}
	actualDuration := regularDuration
	if outcome.Duration != nil {
		actualDuration = *outcome.Duration
	}
	if predDuration == actualDuration {
		return 1
	}
	return 0
}

// ComputeUserMatchPoints scores one user against one finished match: every
// favourite, the prediction (if any) and the time-of-first-goal bet. Pure and
// deterministic; the only possible error is an unrecognized stage.
func ComputeUserMatchPoints(userID string, favourites []models.Favourite, pred *models.MatchPrediction, match MatchContext, outcome models.MatchOutcome) (models.UserMatchPoints, error) {
	phase, err := PhaseOf(match.StageID)
	if err != nil {
		return models.UserMatchPoints{}, err
	}

	favPoints := 0
	for _, fav := range favourites {
		favPoints += favouritePoints(fav, phase, match, outcome)
	}

	var resultPoints, timeOfGoalPoints int
	if pred != nil {
		resultPoints, timeOfGoalPoints = predictionPoints(*pred, phase, match, outcome)
	}

	return models.UserMatchPoints{
		UserID:  userID,
		MatchID: match.MatchID,

		Favourites:      favPoints,
		Prediction:      resultPoints,
		TimeOfFirstGoal: timeOfGoalPoints,

		Total: favPoints + resultPoints + timeOfGoalPoints,
	}, nil
}
