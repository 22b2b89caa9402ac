package postgres

// GetMigrations returns all embedded database migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_enrollments",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS enrollments (
					id UUID PRIMARY KEY,
					student_id UUID NOT NULL,
					course_id UUID NOT NULL,
					enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					CONSTRAINT enrollments_student_course_key UNIQUE (student_id, course_id)
				);

				CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id);
				CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
			`,
		},
		{
			Version: 2,
			Name:    "create_progress_records",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS progress_records (
					student_id UUID NOT NULL,
					course_id UUID NOT NULL,
					completed_lessons INTEGER NOT NULL DEFAULT 0 CHECK (completed_lessons >= 0),
					submitted_assignments INTEGER NOT NULL DEFAULT 0 CHECK (submitted_assignments >= 0),
					total_lessons INTEGER NOT NULL DEFAULT 0 CHECK (total_lessons >= 0),
					total_assignments INTEGER NOT NULL DEFAULT 0 CHECK (total_assignments >= 0),
					percentage DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (percentage >= 0 AND percentage <= 100),
					last_updated TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					PRIMARY KEY (student_id, course_id)
				);

				CREATE INDEX IF NOT EXISTS idx_progress_course ON progress_records(course_id);
			`,
		},
		{
			Version: 3,
			Name:    "create_completed_items",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS completed_items (
					student_id UUID NOT NULL,
					course_id UUID NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('lesson', 'assignment')),
					item_id TEXT NOT NULL,
					completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					PRIMARY KEY (student_id, course_id, kind, item_id)
				);

				CREATE INDEX IF NOT EXISTS idx_completed_items_pair
					ON completed_items(student_id, course_id);
			`,
		},
		{
			Version: 4,
			Name:    "create_certificates",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS certificates (
					id UUID PRIMARY KEY,
					student_id UUID NOT NULL,
					course_id UUID NOT NULL,
					cert_type TEXT NOT NULL CHECK (cert_type IN ('completion', 'excellence', 'proficiency')),
					issued_at TIMESTAMP WITH TIME ZONE NOT NULL,
					url TEXT NOT NULL,
					CONSTRAINT certificates_student_course_type_key UNIQUE (student_id, course_id, cert_type)
				);

				CREATE INDEX IF NOT EXISTS idx_certificates_student ON certificates(student_id);
			`,
		},
		{
			Version: 5,
			Name:    "create_dropout_records",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS dropout_records (
					id UUID PRIMARY KEY,
					student_id UUID NOT NULL,
					course_id UUID NOT NULL,
					enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL,
					dropout_at TIMESTAMP WITH TIME ZONE NOT NULL,
					total_course_duration INTEGER NOT NULL CHECK (total_course_duration > 0),
					completed_duration INTEGER NOT NULL CHECK (completed_duration >= 0),
					refund_percentage INTEGER NOT NULL CHECK (refund_percentage IN (0, 25, 50, 90)),
					refund_amount NUMERIC(12, 2) NOT NULL CHECK (refund_amount >= 0),
					reason TEXT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_dropout_records_student ON dropout_records(student_id);
				CREATE INDEX IF NOT EXISTS idx_dropout_records_course ON dropout_records(course_id);
			`,
		},
		{
			Version: 6,
			Name:    "create_semester_prerequisites",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS semester_prerequisites (
					course_id UUID NOT NULL,
					current_semester INTEGER NOT NULL CHECK (current_semester > 0),
					next_semester INTEGER NOT NULL CHECK (next_semester > 0),
					min_credits_required INTEGER NOT NULL CHECK (min_credits_required >= 0),
					min_gpa_required DOUBLE PRECISION NOT NULL CHECK (min_gpa_required >= 0),
					PRIMARY KEY (course_id, current_semester)
				);
			`,
		},
	}
}
