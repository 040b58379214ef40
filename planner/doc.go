// Package planner computes cost-optimal heating-curve offset plans for
// a residential heat pump.
//
// Given aligned forecast series (outdoor temperature, radiation,
// electricity prices, baseline household load) and the building and
// heat-pump parameters, Plan searches the space of integer offset
// sequences with a forward tabular dynamic program. The building's
// thermal mass acts as a short-horizon buffer: positive offsets bank
// heat during cheap hours, negative offsets draw the buffer down, into a
// bounded heat debt, during expensive ones.
//
// Basic usage:
//
//	in := planner.DefaultInput()
//	in.HorizonSteps = 12
//	in.StartTime = time.Now()
//	in.BaseSupplyTemp = base
//	in.OutdoorTemp = outdoor
//	in.Radiation = radiation
//	in.PriceConsumption = prices
//	in.BaselineLoad = load
//	// ... building geometry ...
//
//	out, err := planner.Plan(ctx, in)
//	if err != nil {
//		log.Fatal(err) // malformed input
//	}
//	if out.Status == planner.StatusOK {
//		apply(out.Offsets[0])
//	}
//
// Plan is a pure function of its input: it performs no I/O, holds no
// process-wide state, and is safe to call from multiple goroutines with
// independent inputs. Runtime conditions (missing forecasts,
// infeasibility, cancellation) are reported through the output status
// and warning list, never as errors or panics.
package planner
