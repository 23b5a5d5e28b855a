package errs

import "fmt"

type Code string

const (
	ExtAllowAndDeny         Code = "EXT_ALLOW_AND_DENY"
	ProvidePaths            Code = "PROVIDE_PATHS"
	DeleteLocalNeedsConfirm Code = "DELETE_LOCAL_NEEDS_CONFIRM"
	RestoreBucketIsSource   Code = "RESTORE_BUCKET_IS_SOURCE"
	DeleteNeedsConfirm      Code = "DELETE_NEEDS_CONFIRM"
)

var messages = map[Code]string{
	ExtAllowAndDeny: `Invalid flag combination: cannot use --ext with --exclude-ext

Usage:
  - Archive only some extensions:
      cellar sync --ext .bam --ext .cram
  - Archive everything except some extensions:
      cellar sync --exclude-ext .tmp

Reason:
  --ext is an allow-list, --exclude-ext a deny-list. Only one mode applies per run.`,

	ProvidePaths: `Missing targets: provide the archived files to %[1]s

Examples:
  cellar %[2]s runs/s1.bam            # by archived file
  cellar %[2]s runs/s1.bam.cellar     # by placeholder`,

	DeleteLocalNeedsConfirm: `--delete-local requires confirmation

Usage:
  - Archive and keep local copies:
      cellar sync
  - Archive and remove verified local copies (destructive):
      cellar sync --delete-local --yes

Reason:
  --delete-local removes local files once their upload is verified.
  Confirm interactively or pass --yes to acknowledge this destructive operation.`,

	RestoreBucketIsSource: `Invalid flag combination: --restore-bucket must differ from the archive bucket

Usage:
  cellar sync --restore-bucket scratch-bucket

Reason:
  Restored copies are written next to the archive, never over it.`,

	DeleteNeedsConfirm: `delete requires confirmation

Usage:
  cellar delete runs/s1.bam --yes

Reason:
  The next sync permanently deletes the remote object of every file marked for deletion.`,
}

func Msg(code Code, a ...any) string {
	msg := messages[code]
	if msg == "" {
		msg = string(code)
	}
	return fmt.Sprintf(msg, a...)
}
