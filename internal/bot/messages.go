package bot

import (
	"fmt"
	"strings"

	"dorbot/internal/models"
)

// rupiah formats an amount in the Indonesian thousands style: 4500 ->
// "4.500".
func rupiah(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}

	s := fmt.Sprintf("%d", n)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ".")
	if neg {
		out = "-" + out
	}
	return out
}

func (d *Dispatcher) mainMenuText(user *models.User) string {
	p := d.cfg.Prefix
	return fmt.Sprintf(`🤖 *%s*
Selamat datang di layanan paket data otomatis!

💰 *Saldo Anda:* Rp. %s

📋 *Menu Utama:*
%smenu - Tampilkan menu ini
%ssaldo - Cek saldo Anda
%sbeli - Beli paket data
%scekpaket - Cek paket aktif
%sriwayat - Riwayat transaksi

💡 *Cara Top Up:*
Hubungi admin untuk mengisi saldo

📞 Admin: wa.me/%s`,
		d.cfg.Name, rupiah(user.Saldo), p, p, p, p, p, d.cfg.OwnerNumber)
}

func (d *Dispatcher) packageMenuText(user *models.User, pkgs []models.Package) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *Pilih Paket Data*\n\nSaldo Anda: *Rp. %s*\n\n📦 *Paket Tersedia:*\n\n", rupiah(user.Saldo))
	for i, pkg := range pkgs {
		fmt.Fprintf(&b, "*%d. %s*\n💰 Harga: Rp. %s\n📝 %s\n\n", i+1, pkg.Name, rupiah(pkg.Price), pkg.Description)
	}
	fmt.Fprintf(&b, "Ketik nomor paket (1-%d) untuk membeli\nKetik *batal* untuk membatalkan", len(pkgs))
	return b.String()
}

func paymentMethodMenuText(pkg *models.Package, targetNumber string, methods []string) string {
	var b strings.Builder
	b.WriteString("💳 *Pilih Metode Pembayaran*\n\n")
	fmt.Fprintf(&b, "📦 Paket: %s\n📞 Target: %s\n💰 Harga: Rp. %s\n\n", pkg.Name, targetNumber, rupiah(pkg.Price))
	b.WriteString("*Metode Pembayaran:*\n")
	for i, method := range methods {
		fmt.Fprintf(&b, "%d. %s\n", i+1, method)
	}
	fmt.Fprintf(&b, "\nKetik nomor pilihan (1-%d)\nKetik *batal* untuk membatalkan", len(methods))
	return b.String()
}

func purchaseConfirmationText(user *models.User, targetNumber string, pkg *models.Package, paymentMethod string) string {
	var b strings.Builder
	b.WriteString("🛒 *Konfirmasi Pembelian*\n\n")
	fmt.Fprintf(&b, "📞 Nomor target: %s\n📦 Paket: %s\n💰 Harga: Rp. %s", targetNumber, pkg.Name, rupiah(pkg.Price))
	if paymentMethod != "" {
		fmt.Fprintf(&b, "\n💳 Metode: %s", paymentMethod)
	}
	fmt.Fprintf(&b, "\n\n💳 Saldo saat ini: Rp. %s\n💳 Saldo setelah: Rp. %s\n\n", rupiah(user.Saldo), rupiah(user.Saldo-pkg.Price))
	b.WriteString("⚠️ *Pastikan nomor sudah benar!*\nTransaksi tidak dapat dibatalkan setelah diproses.\n\n")
	b.WriteString("Ketik *ya* untuk melanjutkan\nKetik *batal* untuk membatalkan")
	return b.String()
}

const invalidTargetNumberText = "❌ *Nomor tidak valid!*\n\n" +
	"Pastikan nomor adalah XL/Axis yang valid\n" +
	"Contoh: 081712345678, 087812345678\n\n" +
	"Silakan masukkan nomor yang benar:"

const systemErrorText = "❌ Terjadi kesalahan sistem. Silakan coba lagi dalam beberapa saat."

func statusIcon(status string) string {
	switch status {
	case models.TrxStatusSuccess:
		return "✅"
	case models.TrxStatusFailed:
		return "❌"
	default:
		return "⏳"
	}
}
