package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	volumes := []string{"library", "staging", "database", "unknown"}

	for _, vol := range volumes {
		for _, op := range []string{"read", "write", "stat", "rename"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open", "rename"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, status := range []string{"duplicate_detected", "needs_positioning", "portrait_rejected",
		"success", "skipped", "failed"} {
		IngestFilesTotal.WithLabelValues(status)
	}

	for _, status := range []string{"complete", "waiting_for_user_action", "error"} {
		IngestJobsFinished.WithLabelValues(status)
	}

	IngestFilesAwaiting.WithLabelValues("duplicate")
	IngestFilesAwaiting.WithLabelValues("positioning")

	for _, backend := range []string{"imaging", "vips"} {
		IngestTransformDuration.WithLabelValues(backend)
		IngestTransformErrors.WithLabelValues(backend)
	}

	for _, action := range []string{"skip", "overwrite", "import_anyway"} {
		IngestResolutionsTotal.WithLabelValues("duplicate", action)
	}
	IngestResolutionsTotal.WithLabelValues("positioning", "crop")
	IngestResolutionsTotal.WithLabelValues("positioning", "skip")

	for _, result := range []string{"ok", "pruned", "missing_derivative"} {
		LibraryRecordsChecked.WithLabelValues(result)
	}

	for _, op := range []string{"initialize_schema", "insert_record", "delete_record",
		"find_by_fingerprint", "update_record_path", "set_derivative_path", "get_record",
		"get_folder", "add_folder", "list_folders", "count_images", "list_records"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
