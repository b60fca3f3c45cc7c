package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per crawl invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,
    api_url TEXT NOT NULL,
    source TEXT NOT NULL,          -- property:infoboxes, category:Planets, retry:3
    output_dir TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running', -- running, completed, partial_failure, aborted
    discovered INTEGER DEFAULT 0,
    written INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

-- Pages: every wiki page seen by any run, keyed by the wiki page id
CREATE TABLE IF NOT EXISTS pages (
    page_id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    first_seen_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_seen_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pages_title ON pages(title);

-- Page results: per-page outcome within a run
CREATE TABLE IF NOT EXISTS page_results (
    result_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    page_id INTEGER NOT NULL,
    batch INTEGER DEFAULT 0,
    status TEXT NOT NULL,          -- written, skipped, failed
    reason TEXT,
    error_type TEXT,
    error_message TEXT,
    infobox_count INTEGER DEFAULT 0,
    template TEXT,
    file_path TEXT,
    content_hash TEXT,
    file_size_bytes INTEGER DEFAULT 0,
    language TEXT,
    section_count INTEGER DEFAULT 0,
    category_count INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    FOREIGN KEY (page_id) REFERENCES pages(page_id),
    UNIQUE(run_id, page_id)
);

CREATE INDEX IF NOT EXISTS idx_page_results_run ON page_results(run_id);
CREATE INDEX IF NOT EXISTS idx_page_results_status ON page_results(status);
`
