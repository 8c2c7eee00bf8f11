package history

// schemaSQL defines the history tables. Applied on every connect; all
// statements are idempotent.
const schemaSQL = `
    -- ==========================================================================
    -- CONSOLIDATION RUN TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS consolidation_run SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS run_id ON consolidation_run TYPE string;
    DEFINE FIELD IF NOT EXISTS kind ON consolidation_run TYPE string;
    DEFINE FIELD IF NOT EXISTS threshold ON consolidation_run TYPE float;
    DEFINE FIELD IF NOT EXISTS approximate ON consolidation_run TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS dry_run ON consolidation_run TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS entity_count ON consolidation_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS group_count ON consolidation_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS merge_count ON consolidation_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS errors ON consolidation_run TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS comparisons ON consolidation_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS cache_hit_rate ON consolidation_run TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS elapsed_seconds ON consolidation_run TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS started ON consolidation_run TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS run_started ON consolidation_run FIELDS started;
    DEFINE INDEX IF NOT EXISTS run_kind ON consolidation_run FIELDS kind;

    -- ==========================================================================
    -- PROCESSED DOCUMENT TABLE (which documents a pipeline already handled)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS processed_document SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS document_id ON processed_document TYPE int;
    DEFINE FIELD IF NOT EXISTS task ON processed_document TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON processed_document TYPE string DEFAULT '';
    DEFINE FIELD IF NOT EXISTS processed ON processed_document TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS processed_doc_task ON processed_document FIELDS document_id, task UNIQUE;
`
