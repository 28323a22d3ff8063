package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Trade Signals</title>
<style>
  :root { color-scheme: dark; }
  body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; background: #0f1117; color: #e4e6eb; }
  header { padding: 16px 24px; border-bottom: 1px solid #23262f; display: flex; align-items: center; gap: 16px; }
  header h1 { font-size: 18px; margin: 0; }
  #status { font-size: 12px; color: #8b8f9a; }
  main { padding: 24px; display: grid; gap: 24px; }
  section { background: #161922; border: 1px solid #23262f; border-radius: 8px; padding: 16px; }
  h2 { font-size: 14px; text-transform: uppercase; letter-spacing: .05em; color: #8b8f9a; margin: 0 0 12px; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #23262f; }
  th { color: #8b8f9a; font-weight: 500; }
  .BUY { color: #3fb950; font-weight: 600; }
  .SELL { color: #f85149; font-weight: 600; }
  .HOLD { color: #d29922; font-weight: 600; }
  button { background: #238636; color: #fff; border: 0; border-radius: 6px; padding: 6px 12px; cursor: pointer; }
  #insight { white-space: pre-wrap; line-height: 1.5; font-size: 14px; }
</style>
</head>
<body>
<header>
  <h1>Trade Signals</h1>
  <span id="status">connecting...</span>
</header>
<main>
  <section>
    <h2>Latest signals</h2>
    <table>
      <thead>
        <tr><th>Symbol</th><th>Market</th><th>Signal</th><th>Confidence</th><th>Price</th><th>Take profit</th><th>Stop loss</th><th>Method</th><th>Time</th></tr>
      </thead>
      <tbody id="signals"></tbody>
    </table>
  </section>
  <section>
    <h2>Market insights</h2>
    <button id="load-insight">Refresh</button>
    <p id="insight"></p>
  </section>
</main>
<script>
  const rows = new Map();
  const tbody = document.getElementById('signals');
  const status = document.getElementById('status');

  function cell(text, cls) {
    const td = document.createElement('td');
    td.textContent = text;
    if (cls) td.className = cls;
    return td;
  }

  function render(sig) {
    const tr = document.createElement('tr');
    tr.appendChild(cell(sig.symbol));
    tr.appendChild(cell(sig.market));
    tr.appendChild(cell(sig.type, sig.type));
    tr.appendChild(cell(Number(sig.confidence).toFixed(1) + '%'));
    tr.appendChild(cell(sig.price));
    tr.appendChild(cell(sig.takeProfit));
    tr.appendChild(cell(sig.stopLoss));
    tr.appendChild(cell(sig.indicator));
    tr.appendChild(cell(new Date(sig.generatedAt).toLocaleTimeString()));

    const key = sig.market + ':' + sig.symbol;
    const old = rows.get(key);
    if (old) old.remove();
    rows.set(key, tr);
    tbody.prepend(tr);
  }

  const source = new EventSource('/api/signals/stream');
  source.onopen = () => { status.textContent = 'live'; };
  source.onerror = () => { status.textContent = 'reconnecting...'; };
  source.addEventListener('signal', (e) => render(JSON.parse(e.data).signal));

  document.getElementById('load-insight').addEventListener('click', async () => {
    const el = document.getElementById('insight');
    el.textContent = 'loading...';
    try {
      const resp = await fetch('/api/insights');
      const body = await resp.json();
      el.textContent = resp.ok ? body.summary : body.error;
    } catch (err) {
      el.textContent = String(err);
    }
  });
</script>
</body>
</html>
`
