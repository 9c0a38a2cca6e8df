// Package vendorsim simulates the Qube, Secure Meters and L&T vendor APIs.
//
// Each endpoint speaks its vendor's wire format: field names, credential
// carrier and error shapes. Only L&T errors carry a code. Readings come from
// a deterministic household load model:
//
//   - 2.0 kW base load, scaled ×1.4 in the morning (06-09), ×1.2 at midday
//     (12-14), ×1.7 in the evening (19-22) and ×0.3 overnight (23-05)
//   - ×0.8 at weekends
//   - ±5% noise keyed on meter id and minute, so repeated reads agree
//
// Energy today is the model integrated since local midnight, and cost is
// energy × tariff rounded to paise.
//
// Meters named TEST_HOUR_<h> read as if the local time were h:30. This lets
// a test sample the whole daily curve without waiting for it.
package vendorsim
