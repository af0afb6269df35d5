// Package domain models current weather observations and the regression
// forecast derived from them.
//
// # Data Source
//
// Observations come from the OpenWeatherMap current-conditions endpoint
// (https://openweathermap.org/current), requested with units=metric. Only a
// small subset of the payload is consumed:
//
//	main.temp        °C          required
//	main.humidity    %           required
//	main.pressure    hPa         required
//	wind.speed       m/s         required
//	weather[0].main  label       required, e.g. "Rain", "Clouds"
//	weather[0].icon  icon code   optional, defaults to "01d"
//	rain.1h          mm          optional
//	snow.1h          mm          optional
//
// The provider omits the rain and snow blocks entirely when there was none,
// and third-party proxies have been seen to send the volumes as strings.
// Precipitation is therefore computed leniently: each volume that is absent,
// non-numeric or negative counts as zero, and the sum is rounded to two
// decimals. A missing required field fails extraction with
// KindMalformedResponse since the model cannot run without it.
//
// # Model
//
// The forecast model is a multi-output linear regression fitted on
// standardized features. Inputs are always ordered
//
//	temperature, humidity, wind speed, pressure
//
// and the two outputs are next-period temperature (°C) and precipitation (mm).
// Single-target models are also accepted; their scalar output is taken as the
// temperature and precipitation is reported as zero. Output of any other shape
// yields a zero forecast rather than an error, since the UI always needs a
// renderable payload once observations were obtained. See [NormalizeOutput].
//
// # Presentation
//
// The condition label selects a background token for the UI:
//
//	clear                       -> sunny
//	clouds, mist, fog, haze     -> cloudy
//	rain, drizzle, thunderstorm -> rain
//	snow                        -> snow
//	anything else               -> default
package domain
