// Package billing provides the domain model for tariffs, invoices and
// payments of the water utility back office.
//
// This package implements the billing bounded context, which is responsible for:
//   - Defining tariff schedules as contiguous consumption tiers
//   - Pricing a monthly consumption against a tariff's tier set
//   - Generating exactly one invoice per meter reading
//   - Applying payments against invoice balances
//
// Key Aggregates:
//   - Tariff: A validity window plus an ordered, contiguous set of tiers
//   - Invoice: The monetary obligation generated from a single reading
//
// Entities:
//   - TariffRange: One priced consumption tier of a tariff
//   - Payment: Immutable record of money applied against an invoice
//
// Pricing is tier lookup, not marginal accumulation: the tier containing
// the floored consumption prices the whole amount, the first tier acting
// as a fixed minimum charge and the last tier absorbing any overflow.
//
// The billing domain integrates with:
//   - Metering domain: As the source of billable readings
//   - Customer domain: For the tariff assigned to each account
package billing
