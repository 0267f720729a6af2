package project

import "github.com/roach88/exprstate/internal/ir"

// Reduce computes the next state and the events to hand to the effect
// runner. It is pure: the input state is never mutated.
//
// A content conflict on FetchExpressionSuccess returns the input state, no
// events and the *contentstore.ConflictError. Unrecognised actions return
// the input state with no events and no error.
func Reduce(state State, action Action) (State, []Event, error) {
	switch a := action.(type) {
	case Initialise:
		return state, []Event{ListBindings{Hash: state.ProjectHash}}, nil

	case CreateProject:
		return state, []Event{CreateProjectEvent{}}, nil

	case StoreProjectData:
		next := state.
			WithProjectHash(a.Data.Hash).
			WithBindings(a.Data.Bindings, a.Data.TypeBindings)
		hashes := append(a.Data.Hashes(), a.ExtraHashes...)
		return next, []Event{
			FetchExpressions{Hashes: uniqueHashes(hashes), ProjectHash: a.Data.Hash},
			SaveToSessionStorage{Hash: a.Data.Hash},
		}, nil

	case FetchExpressionsForHashes:
		return state, []Event{
			FetchExpressions{Hashes: uniqueHashes(a.Hashes), ProjectHash: state.ProjectHash},
		}, nil

	case StoreProjectHash:
		return state.WithProjectHash(a.Hash), []Event{ListBindings{Hash: a.Hash}}, nil

	case FetchExpressionSuccess:
		if a.ProjectHash != "" && a.ProjectHash != state.ProjectHash {
			return state, nil, nil
		}
		store, err := state.Store.Put(a.Hash, a.Data)
		if err != nil {
			return state, nil, err
		}
		return state.WithStore(store), nil, nil

	default:
		return state, nil, nil
	}
}

// uniqueHashes drops empty and repeated hashes, keeping first-seen order.
func uniqueHashes(hashes []ir.ExprHash) []ir.ExprHash {
	seen := make(map[ir.ExprHash]bool, len(hashes))
	out := make([]ir.ExprHash, 0, len(hashes))
	for _, h := range hashes {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
