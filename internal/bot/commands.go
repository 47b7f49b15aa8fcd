package bot

import (
	"context"
	"fmt"
	"strings"
)

func (d *Dispatcher) cmdPing(ctx context.Context, sender, _ string) error {
	return d.send(ctx, sender, "🏓 PONG!")
}

func (d *Dispatcher) cmdMenu(ctx context.Context, sender, _ string) error {
	return d.sendMainMenu(ctx, sender)
}

func (d *Dispatcher) cmdSaldo(ctx context.Context, sender, _ string) error {
	user, err := d.ledger.GetOrCreate(ctx, sender)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("💰 *Info Saldo*\n\n📞 Nomor: %s\n💳 Saldo: Rp. %s\n📊 Total transaksi: %d\n\nKetik *%sbeli* untuk membeli paket",
		user.PhoneNumber, rupiah(user.Saldo), user.TotalTrx, d.cfg.Prefix)
	return d.send(ctx, sender, text)
}

func (d *Dispatcher) cmdRiwayat(ctx context.Context, sender, _ string) error {
	trxs, err := d.trxs.GetUserTransactions(ctx, sender, 10)
	if err != nil {
		return err
	}
	if len(trxs) == 0 {
		return d.send(ctx, sender, "📭 Belum ada transaksi.\n\nKetik *"+d.cfg.Prefix+"beli* untuk membeli paket pertama Anda!")
	}

	var b strings.Builder
	b.WriteString("📋 *Riwayat Transaksi*\n\n")
	for _, trx := range trxs {
		fmt.Fprintf(&b, "%s *%s*\n📦 %s\n📞 %s\n💰 Rp. %s\n🕐 %s\n\n",
			statusIcon(trx.Status), trx.TrxID, trx.PackageName, trx.TargetNumber,
			rupiah(trx.Amount), trx.CreatedAt.Format("02/01/2006 15:04"))
	}
	fmt.Fprintf(&b, "Menampilkan %d transaksi terakhir", len(trxs))
	return d.send(ctx, sender, b.String())
}

func (d *Dispatcher) cmdCekPaket(ctx context.Context, sender, _ string) error {
	d.states.Set(sender, State{Kind: KindCheckPackageNumber})
	return d.send(ctx, sender, "🔍 *Cek Paket Aktif*\n\nMasukkan nomor yang ingin dicek:\nContoh: 081712345678\n\nKetik *batal* untuk membatalkan")
}

func (d *Dispatcher) handleCheckPackageNumber(ctx context.Context, sender, input string) error {
	target, ok := ValidateTargetNumber(input)
	if !ok {
		return d.send(ctx, sender, invalidTargetNumberText)
	}
	d.states.Clear(sender)

	if err := d.send(ctx, sender, "⏳ Mengecek paket aktif..."); err != nil {
		return err
	}

	session := d.gateway.GetAccessToken(ctx, target)
	if session.NeedOTP {
		return d.send(ctx, sender, fmt.Sprintf("⚠️ Nomor %s belum memiliki sesi login.\n\nCek paket memerlukan sesi aktif. Lakukan pembelian dengan *%sbeli* terlebih dahulu untuk membuat sesi.", target, d.cfg.Prefix))
	}
	if !session.Success {
		return d.send(ctx, sender, "❌ Gagal mengecek paket: "+session.Message)
	}

	detail := d.gateway.CheckPackageDetail(ctx, target, session.AccessToken)
	if !detail.Success {
		return d.send(ctx, sender, "❌ Gagal mengecek paket: "+detail.Message)
	}
	if len(detail.Quotas) == 0 {
		return d.send(ctx, sender, fmt.Sprintf("📭 Tidak ada paket aktif pada nomor %s", target))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📱 *Paket Aktif*\n📞 Nomor: %s\n\n", target)
	for i, quota := range detail.Quotas {
		fmt.Fprintf(&b, "*%d. %s*\n⏰ Berakhir: %s\n", i+1, quota.Name, quota.ExpiredAt)
		for _, benefit := range quota.Benefits {
			fmt.Fprintf(&b, "  • %s: %s / %s\n", benefit.Name, benefit.RemainingQuota, benefit.Quota)
		}
		b.WriteString("\n")
	}
	return d.send(ctx, sender, b.String())
}
