package cohort

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"daymart/model/model"
	U "daymart/util"
)

// Input carries the window's deduplicated records together with the prior
// committed cohort state of the trailing matrix range. No stage reads the
// store or an ambient clock directly.
type Input struct {
	Date    string
	Records []model.DedupRecord
	// Committed assignments with cohort dates inside the matrix range.
	PriorAssignments []model.CohortAssignment
	// Committed activity inside the matrix range; may already include the
	// window date on recomputation.
	PriorActivity []model.ActorActivity

	QualifyingEvent string
	MinCohortSize   int
	MaxOffset       int
}

type Output struct {
	// Assignments derived from the window, to be LEAST-upserted.
	Assignments []model.CohortAssignment
	// Distinct authenticated actors active on the window date.
	Activity []model.ActorActivity
	// Full matrix over the trailing cohort range, small cohorts included.
	Internal []model.RetentionRecord
	// Matrix with cohorts below MinCohortSize removed. This is what gets
	// published; small cohorts contribute to no other cohort.
	Published []model.RetentionRecord
	// Every cohort date in the trailing range, members or not. This is the
	// matrix replacement key set, so a cohort emptied by a reassignment is
	// swept on the next replace instead of lingering published.
	CohortDates []string

	SmallCohorts int
}

// Compute assigns cohort dates and rebuilds the day-offset retention
// matrix for every cohort inside the trailing range of the window date.
// Anonymous actors are excluded entirely.
func Compute(in *Input) (*Output, error) {
	out := &Output{}

	qualifying := make(map[string]bool)
	active := make(map[string]bool)
	for i := range in.Records {
		actorID := in.Records[i].ActorID
		if model.IsAnonymousActor(actorID) {
			continue
		}
		active[actorID] = true
		if in.Records[i].Taxonomy.Name() == in.QualifyingEvent {
			qualifying[actorID] = true
		}
	}

	for _, actorID := range sortedKeys(qualifying) {
		out.Assignments = append(out.Assignments,
			model.CohortAssignment{ActorID: actorID, CohortDate: in.Date})
	}
	for _, actorID := range sortedKeys(active) {
		out.Activity = append(out.Activity,
			model.ActorActivity{ActorID: actorID, ActivityDate: in.Date})
	}

	// Effective assignment per actor: minimum of committed state and the
	// window's qualifying date.
	cohortByActor := make(map[string]string)
	for i := range in.PriorAssignments {
		cohortByActor[in.PriorAssignments[i].ActorID] = in.PriorAssignments[i].CohortDate
	}
	for actorID := range qualifying {
		if existing, exists := cohortByActor[actorID]; !exists || in.Date < existing {
			cohortByActor[actorID] = in.Date
		}
	}

	// Activity set keyed by date, window date overlaid on committed state
	// so recomputation of the same window is a no-op.
	activityByDate := make(map[string]map[string]bool)
	for i := range in.PriorActivity {
		date := in.PriorActivity[i].ActivityDate
		if activityByDate[date] == nil {
			activityByDate[date] = make(map[string]bool)
		}
		activityByDate[date][in.PriorActivity[i].ActorID] = true
	}
	activityByDate[in.Date] = active

	if err := computeMatrix(in, out, cohortByActor, activityByDate); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"date":           in.Date,
		"new_qualifiers": len(out.Assignments),
		"active_actors":  len(out.Activity),
		"cohort_dates":   len(out.CohortDates),
		"small_cohorts":  out.SmallCohorts,
	}).Info("Computed cohort retention.")

	return out, nil
}

func computeMatrix(in *Input, out *Output, cohortByActor map[string]string,
	activityByDate map[string]map[string]bool) error {

	membersByCohort := make(map[string][]string)
	for actorID, cohortDate := range cohortByActor {
		membersByCohort[cohortDate] = append(membersByCohort[cohortDate], actorID)
	}

	rangeStart, err := U.DateBeforeDays(in.Date, in.MaxOffset)
	if err != nil {
		return err
	}
	cohortDates, err := U.DateRange(rangeStart, in.Date)
	if err != nil {
		return err
	}
	out.CohortDates = cohortDates

	for _, cohortDate := range cohortDates {
		members := membersByCohort[cohortDate]
		if len(members) == 0 {
			continue
		}

		size := int64(len(members))
		small := len(members) < in.MinCohortSize
		if small {
			out.SmallCohorts++
		}

		maxOffset, err := U.DaysBetween(cohortDate, in.Date)
		if err != nil {
			return err
		}
		maxOffset = U.MinInt(maxOffset, in.MaxOffset)

		for offset := 0; offset <= maxOffset; offset++ {
			activityDate, err := U.DateAfterDays(cohortDate, offset)
			if err != nil {
				return err
			}

			var returned int64
			for _, actorID := range members {
				if activityByDate[activityDate][actorID] {
					returned++
				}
			}

			record := model.RetentionRecord{
				CohortDate:    cohortDate,
				DayOffset:     offset,
				CohortSize:    size,
				ReturnedCount: returned,
				RetentionRate: U.SafeDividePercentage(float64(returned), float64(size)),
			}
			out.Internal = append(out.Internal, record)
			if !small {
				out.Published = append(out.Published, record)
			}
		}
	}

	return nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
