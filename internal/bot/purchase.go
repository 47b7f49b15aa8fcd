package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dorbot/internal/service"
)

func (d *Dispatcher) cmdBeli(ctx context.Context, sender, _ string) error {
	user, err := d.ledger.GetOrCreate(ctx, sender)
	if err != nil {
		return err
	}

	pkgs := d.catalog.ListActive(ctx)
	if len(pkgs) == 0 {
		return d.send(ctx, sender, "📭 Belum ada paket yang tersedia saat ini.\nSilakan coba lagi nanti.")
	}

	codes := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		codes[i] = pkg.Code
	}
	d.states.Set(sender, State{Kind: KindSelectPackage, PackageCodes: codes})
	return d.send(ctx, sender, d.packageMenuText(user, pkgs))
}

func (d *Dispatcher) handleSelectPackage(ctx context.Context, sender, input string, st State) error {
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || idx < 1 || idx > len(st.PackageCodes) {
		return d.send(ctx, sender, fmt.Sprintf("❌ Pilihan tidak valid!\nKetik nomor paket (1-%d) atau *batal*", len(st.PackageCodes)))
	}

	pkg, ok := d.catalog.Resolve(ctx, st.PackageCodes[idx-1])
	if !ok || !pkg.Active {
		d.states.Clear(sender)
		return d.send(ctx, sender, "❌ Paket sudah tidak tersedia. Ketik *"+d.cfg.Prefix+"beli* untuk melihat paket terbaru.")
	}

	user, err := d.ledger.GetOrCreate(ctx, sender)
	if err != nil {
		return err
	}
	if user.Saldo < pkg.Price {
		d.states.Clear(sender)
		return d.send(ctx, sender, fmt.Sprintf("❌ *Saldo tidak mencukupi!*\n\n💰 Saldo Anda: Rp. %s\n💰 Harga paket: Rp. %s\n💰 Kekurangan: Rp. %s\n\nSilakan top up terlebih dahulu.\n📞 Admin: wa.me/%s",
			rupiah(user.Saldo), rupiah(pkg.Price), rupiah(pkg.Price-user.Saldo), d.cfg.OwnerNumber))
	}

	d.states.Set(sender, State{
		Kind:        KindWaitingTargetNumber,
		PackageCode: pkg.Code,
		Package:     pkg,
	})
	return d.send(ctx, sender, fmt.Sprintf("📦 Paket: *%s*\n💰 Harga: Rp. %s\n\n📞 Masukkan nomor tujuan:\nContoh: 081712345678\n\nKetik *batal* untuk membatalkan",
		pkg.Name, rupiah(pkg.Price)))
}

func (d *Dispatcher) handleTargetNumber(ctx context.Context, sender, input string, st State) error {
	target, ok := ValidateTargetNumber(input)
	if !ok {
		return d.send(ctx, sender, invalidTargetNumberText)
	}

	if err := d.send(ctx, sender, "🔐 Mengecek sesi login nomor "+target+"..."); err != nil {
		return err
	}

	session := d.gateway.GetAccessToken(ctx, target)
	switch {
	case session.Success:
		st.TargetNumber = target
		st.AccessToken = session.AccessToken
		return d.advanceToPayment(ctx, sender, st)

	case session.NeedOTP:
		st.Kind = KindNeedOTPConfirm
		st.TargetNumber = target
		d.states.Set(sender, st)
		return d.send(ctx, sender, fmt.Sprintf("🔐 Nomor %s belum memiliki sesi login.\n\nKode OTP akan dikirim via SMS ke nomor tersebut.\n\nKetik *ya* untuk mengirim OTP\nKetik *batal* untuk membatalkan", target))

	default:
		d.states.Clear(sender)
		return d.send(ctx, sender, "❌ Gagal mengecek sesi login: "+session.Message+"\n\nSilakan coba lagi nanti.")
	}
}

// advanceToPayment moves a flow that holds a valid access token to either
// payment-method selection or straight to the confirmation step.
func (d *Dispatcher) advanceToPayment(ctx context.Context, sender string, st State) error {
	methods := st.Package.PaymentMethodList()
	if len(methods) > 1 {
		st.Kind = KindSelectPaymentMethod
		d.states.Set(sender, st)
		return d.send(ctx, sender, paymentMethodMenuText(st.Package, st.TargetNumber, methods))
	}

	if len(methods) == 1 {
		st.PaymentMethod = methods[0]
	}
	st.Kind = KindConfirmPurchase
	d.states.Set(sender, st)

	user, err := d.ledger.GetOrCreate(ctx, sender)
	if err != nil {
		return err
	}
	return d.send(ctx, sender, purchaseConfirmationText(user, st.TargetNumber, st.Package, st.PaymentMethod))
}

func (d *Dispatcher) handleOTPConfirm(ctx context.Context, sender, input string, st State) error {
	if !strings.EqualFold(strings.TrimSpace(input), "ya") {
		return d.send(ctx, sender, "Ketik *ya* untuk mengirim OTP\nKetik *batal* untuk membatalkan")
	}

	if err := d.send(ctx, sender, "📱 Mengirim kode OTP..."); err != nil {
		return err
	}

	result := d.gateway.RequestOTP(ctx, st.TargetNumber)
	if !result.Success {
		d.states.Clear(sender)
		return d.send(ctx, sender, "❌ Gagal mengirim OTP: "+result.Message+"\n\nSilakan coba lagi nanti.")
	}

	st.Kind = KindWaitingOTP
	st.AuthID = result.AuthID
	d.states.Set(sender, st)
	return d.send(ctx, sender, fmt.Sprintf("✅ Kode OTP telah dikirim ke %s\n\nMasukkan kode OTP yang diterima:\n\nKetik *batal* untuk membatalkan", st.TargetNumber))
}

func (d *Dispatcher) handleOTPCode(ctx context.Context, sender, input string, st State) error {
	code := strings.TrimSpace(input)
	if !isOTPCode(code) {
		return d.send(ctx, sender, "❌ Kode OTP tidak valid!\nMasukkan 4-8 digit angka, atau ketik *batal*")
	}

	session := d.gateway.VerifyOTP(ctx, st.TargetNumber, st.AuthID, code)
	if !session.Success {
		// Keep the state so the sender can retype a mistyped code.
		return d.send(ctx, sender, "❌ Verifikasi OTP gagal: "+session.Message+"\n\nMasukkan ulang kode OTP, atau ketik *batal*")
	}

	st.AccessToken = session.AccessToken
	return d.advanceToPayment(ctx, sender, st)
}

func isOTPCode(s string) bool {
	if len(s) < 4 || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (d *Dispatcher) handlePaymentMethod(ctx context.Context, sender, input string, st State) error {
	methods := st.Package.PaymentMethodList()
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || idx < 1 || idx > len(methods) {
		return d.send(ctx, sender, fmt.Sprintf("❌ Pilihan tidak valid!\nKetik nomor metode (1-%d) atau *batal*", len(methods)))
	}

	st.Kind = KindConfirmPurchase
	st.PaymentMethod = methods[idx-1]
	d.states.Set(sender, st)

	user, err := d.ledger.GetOrCreate(ctx, sender)
	if err != nil {
		return err
	}
	return d.send(ctx, sender, purchaseConfirmationText(user, st.TargetNumber, st.Package, st.PaymentMethod))
}

func (d *Dispatcher) handleConfirmPurchase(ctx context.Context, sender, input string, st State) error {
	if !strings.EqualFold(strings.TrimSpace(input), "ya") {
		return d.send(ctx, sender, "Ketik *ya* untuk melanjutkan pembelian\nKetik *batal* untuk membatalkan")
	}

	// Past this point the flow is committed to the saga; the state is
	// dropped so a second message cannot re-trigger it.
	d.states.Clear(sender)

	if err := d.send(ctx, sender, "⏳ Memproses pembelian paket..."); err != nil {
		return err
	}

	outcome, err := d.saga.Execute(ctx, service.PurchaseIntent{
		Buyer:         sender,
		TargetNumber:  st.TargetNumber,
		Package:       *st.Package,
		AccessToken:   st.AccessToken,
		PaymentMethod: st.PaymentMethod,
	})

	switch {
	case err == nil && outcome.Success:
		var b strings.Builder
		b.WriteString("✅ *Pembelian Berhasil!*\n\n")
		fmt.Fprintf(&b, "📞 Nomor: %s\n📦 Paket: %s\n💰 Harga: Rp. %s\n🧾 ID Transaksi: %s\n",
			st.TargetNumber, outcome.PackageName, rupiah(st.Package.Price), outcome.TrxID)
		if outcome.PaymentMethod != "" {
			fmt.Fprintf(&b, "💳 Metode: %s\n", outcome.PaymentMethod)
		}
		fmt.Fprintf(&b, "\n💳 Sisa saldo: Rp. %s\n\nTerima kasih! 🙏", rupiah(outcome.RemainingBalance))
		return d.send(ctx, sender, b.String())

	case err == nil:
		return d.send(ctx, sender, fmt.Sprintf("❌ *Pembelian Gagal*\n\n📦 Paket: %s\n📝 Alasan: %s\n\n💰 Saldo sudah dikembalikan.",
			outcome.PackageName, outcome.Message))

	case errors.Is(err, service.ErrInsufficientBalance):
		return d.send(ctx, sender, "❌ Saldo tidak mencukupi!\n\nSilakan top up terlebih dahulu.\n📞 Admin: wa.me/"+d.cfg.OwnerNumber)

	default:
		return d.send(ctx, sender, "❌ Terjadi kesalahan saat memproses pembelian.\n\n💰 Jika saldo terpotong, saldo sudah dikembalikan.\nSilakan coba lagi atau hubungi admin.")
	}
}
