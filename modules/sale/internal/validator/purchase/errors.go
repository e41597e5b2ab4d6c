package purchasevalidator

const (
	INVALID_RGB_INVOICE     = "Invalid RGB invoice."
	TIER_NOT_GATED          = "Game score does not reach a purchase tier."
	INVALID_BATCH_COUNT     = "Batch count must be at least 1."
	OVER_LIMIT_PER_TIER     = "Batch count over limit per tier."
	MISSING_IDEMPOTENCY_KEY = "Idempotency key is required."
	INVALID_IDEMPOTENCY_KEY = "Idempotency key is malformed."
	IDEMPOTENCY_KEY_REUSED  = "Idempotency key was used for a different purchase."
)
