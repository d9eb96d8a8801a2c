package viewmodel

// Variant is the severity of a toast.
type Variant string

const (
	VariantNormal      Variant = "normal"
	VariantDestructive Variant = "destructive"
)

// Toast is a transient message for the guest.
type Toast struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Variant     Variant `json:"variant"`
}

// Notifier presents toasts. Notify is called synchronously and must not block.
type Notifier interface {
	Notify(Toast)
}

type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

var (
	ValidationToast = Toast{
		Title:       "Mohon lengkapi formulir",
		Description: "Nama dan ucapan harus diisi.",
		Variant:     VariantDestructive,
	}
	SuccessToast = Toast{
		Title:       "Terima kasih!",
		Description: "Ucapan Anda telah terkirim.",
		Variant:     VariantNormal,
	}
	FailureToast = Toast{
		Title:       "Gagal mengirim",
		Description: "Terjadi kesalahan, silakan coba lagi.",
		Variant:     VariantDestructive,
	}
)
