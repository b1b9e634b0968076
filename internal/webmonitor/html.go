package webmonitor

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Interest Monitor</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <link rel="stylesheet" href="/assets/monitor.css">
</head>
<body>
    <div class="app">
        <div class="header">
            <div class="title">Interest Monitor</div>
            <span class="badge" id="status-badge">Waiting for data...</span>
        </div>

        <div class="grid">
            <div class="panel">
                <h2>Change Mask</h2>
                <p class="panel-subtitle">Pixels brighter than the rolling mean</p>
                <img id="mask" src="/stream/mask" alt="interest mask">
            </div>

            <div class="panel">
                <h2>Interest</h2>
                <div class="score" id="score">-</div>
                <canvas id="chart" width="360" height="120"></canvas>
                <dl class="stats">
                    <dt>Frame</dt><dd id="frame">-</dd>
                    <dt>FPS</dt><dd id="fps">-</dd>
                    <dt>Flagged</dt><dd id="flagged">-</dd>
                </dl>
            </div>

            <div class="panel">
                <h2>Recording</h2>
                <p id="rec-state">-</p>
                <button type="button" id="rec-start">Start</button>
                <button type="button" id="rec-stop">Stop</button>
            </div>

            <div class="panel">
                <h2>Recent Events</h2>
                <ul id="history"></ul>
            </div>
        </div>
    </div>

    <script>
    const scores = [];
    const chart = document.getElementById('chart').getContext('2d');

    function draw() {
        const c = chart.canvas;
        chart.clearRect(0, 0, c.width, c.height);
        chart.strokeStyle = '#4ade80';
        chart.beginPath();
        scores.forEach((s, i) => {
            const x = i * c.width / 120;
            const y = c.height - Math.min(1, s * 10) * c.height;
            if (i === 0) chart.moveTo(x, y); else chart.lineTo(x, y);
        });
        chart.stroke();
    }

    const events = new EventSource('/api/interest/stream');
    events.onmessage = (msg) => {
        const ev = JSON.parse(msg.data);
        document.getElementById('score').textContent = (ev.score * 100).toFixed(2) + '%';
        document.getElementById('frame').textContent = ev.frame_number;
        const badge = document.getElementById('status-badge');
        badge.textContent = ev.interesting ? 'Interesting' : 'Quiet';
        badge.className = 'badge ' + (ev.interesting ? 'badge-hot' : 'badge-quiet');
        scores.push(ev.score);
        if (scores.length > 120) scores.shift();
        draw();
    };

    const status = new EventSource('/api/status/stream');
    status.onmessage = (msg) => {
        const st = JSON.parse(msg.data);
        document.getElementById('fps').textContent = st.monitor.current_fps.toFixed(1);
        document.getElementById('flagged').textContent = st.monitor.frames_flagged;
        if (st.recording) {
            document.getElementById('rec-state').textContent = st.recording.recording
                ? 'Recording ' + st.recording.filename + ' (' + st.recording.frame_count + ' frames)'
                : 'Idle';
        }
        const list = document.getElementById('history');
        list.innerHTML = '';
        (st.interest_history || []).forEach((ev) => {
            const li = document.createElement('li');
            li.textContent = '#' + ev.frame_number + ' ' + (ev.score * 100).toFixed(2) + '%';
            list.appendChild(li);
        });
    };

    document.getElementById('rec-start').onclick = () => fetch('/api/recording/start', {method: 'POST'});
    document.getElementById('rec-stop').onclick = () => fetch('/api/recording/stop', {method: 'POST'});
    </script>
</body>
</html>
`

const monitorCSS = `
body { margin: 0; background: #111; color: #eee; font-family: sans-serif; }
.app { max-width: 1100px; margin: 0 auto; padding: 16px; }
.header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 16px; }
.title { font-size: 1.4em; font-weight: bold; }
.badge { padding: 4px 10px; border-radius: 12px; background: #333; }
.badge-hot { background: #b91c1c; }
.badge-quiet { background: #15803d; }
.grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(360px, 1fr)); gap: 16px; }
.panel { background: #1c1c1c; border-radius: 8px; padding: 12px; }
.panel-subtitle { color: #999; margin-top: 0; }
.panel img { width: 100%; image-rendering: pixelated; }
.score { font-size: 2.4em; font-weight: bold; }
.stats { display: grid; grid-template-columns: auto 1fr; gap: 4px 12px; }
`
