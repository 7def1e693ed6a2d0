// Package query implements the environment query execution engine.
//
// A Query is an ordered list of Options. Each Option pairs a Generator, which
// produces candidate items, with an ordered list of Tests that filter and
// score them. An Instance runs one Query for one owner:
//
//	qi := query.NewInstance(query.Config{Query: q, Owner: id, World: w, RunMode: query.AllMatching})
//	for !qi.IsFinished() {
//	    qi.ExecuteOneStep(2 * time.Millisecond)
//	}
//	res := qi.Result()
//	qi.Release()
//
// # Staged Execution
//
// Every ExecuteOneStep call advances exactly one stage: the generator of the
// current option, or one test. A test stage is time-boxed: when the step
// budget runs out mid-test, the instance remembers the item index to resume
// from and the next call continues there. Time-boxing only changes step
// granularity, never the final items or scores.
//
// # Tests
//
// Tests touch items only through the Iterator:
//
//	func (t *MyTest) RunTest(qi *query.Instance) {
//	    for it := qi.Iterate(t); it.Next(); {
//	        loc, ok := qi.ItemLocation(it.Index())
//	        if !ok {
//	            it.SkipItem()
//	            continue
//	        }
//	        it.SetScore(t.Filter, score(loc), min, max)
//	    }
//	}
//
// Embed TestBase to get purpose, multi-context policies and the default
// score normalization.
//
// # Run Modes
//
//   - SingleBestItem: the best scored item
//   - RandomBest5Pct, RandomBest25Pct: a random item within 5% / 25% of the best score
//   - AllMatching: all valid items, scores normalized to [0, 1]
//
// # Errors
//
// Nothing in this package panics or returns errors for query control flow.
// Every condition is state: check Status after the instance is finished.
package query
