package generation

import "studio/internal/domain"

// Result is the merged view of one request's outcomes.
type Result struct {
	Status domain.ProjectStatus
	Assets []domain.Asset
	Errors []domain.GenerationError
}

// Combine folds outcomes into a status, the assets of succeeded components and
// one error per failed component, always in image, video, text order. A
// component with no outcome counts as failed without an error entry. Combine
// does not retain or modify its input.
func Combine(outcomes Outcomes) Result {
	res := Result{Assets: []domain.Asset{}, Errors: []domain.GenerationError{}}
	succeeded, failed := 0, 0
	for _, component := range domain.Components {
		out, ok := outcomes[component]
		switch {
		case !ok:
			failed++
		case out.Err != nil:
			failed++
			e := *out.Err
			e.Component = component
			res.Errors = append(res.Errors, e)
		default:
			succeeded++
			res.Assets = append(res.Assets, out.Assets...)
		}
	}

	switch {
	case failed == 0:
		res.Status = domain.ProjectStatusComplete
	case succeeded == 0:
		res.Status = domain.ProjectStatusFailed
	default:
		res.Status = domain.ProjectStatusPartial
	}
	return res
}
