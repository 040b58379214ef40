// Package meteo provides a Go client for the MET Norway Location
// Forecast API, trimmed to air temperature, relative humidity, cloud
// cover and wind speed. The heating planner reads the first three.
//
// Basic usage:
//
//	client := meteo.NewClient("YourApp/1.0 (your-email@example.com)")
//
//	forecast, err := client.GetComplete(meteo.QueryParams{
//		Location: meteo.Location{
//			Latitude:  52.09, // Utrecht
//			Longitude: 5.12,
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	temps := forecast.HourlySeries(time.Now(), 24, (*meteo.ForecastTimeStep).GetTemperature)
//
// The client handles JSON deserialization according to the MET API
// specification and returns typed errors for HTTP and validation
// failures.
//
// For more information about the API, visit:
// https://api.met.no/weatherapi/locationforecast/2.0/documentation
package meteo
